// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes GlamCal scheduling tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/logo"
	"github.com/starford/glamcal/internal/scheduling"
)

// GuideURI is the resource URI of the booking guide.
const GuideURI = "glamcal://booking-guide"

// Server wraps the MCP server with GlamCal tools.
type Server struct {
	mcp *server.MCPServer
	svc *scheduling.Service
}

// New creates a new MCP server with all GlamCal tools registered.
func New(svc *scheduling.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"GlamCal",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_month",
		mcp.WithDescription("Month calendar: per day whether the salon is closed and how many appointments are booked."),
		mcp.WithNumber("year", mcp.Required(), mcp.Description("Four-digit year")),
		mcp.WithNumber("month", mcp.Required(), mcp.Description("Month number 1-12")),
	), s.getMonth)

	s.mcp.AddTool(mcp.NewTool("get_day",
		mcp.WithDescription("All appointments of one day, ordered by start time."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
	), s.getDay)

	s.mcp.AddTool(mcp.NewTool("check_date",
		mcp.WithDescription("Whether the salon is open on a date, and the next open day if it is closed."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
	), s.checkDate)

	s.mcp.AddTool(mcp.NewTool("list_services",
		mcp.WithDescription("The service catalog with ids, names and durations in minutes."),
	), s.listServices)

	s.mcp.AddTool(mcp.NewTool("search_appointments",
		mcp.WithDescription("Search appointments by client name or service."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchAppointments)

	s.mcp.AddTool(mcp.NewTool("book_appointment",
		mcp.WithDescription("Book a new appointment. Fails on closed days. "+
			"Read the booking guide first via get_booking_guide or the "+GuideURI+" resource."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
		mcp.WithString("time", mcp.Required(), mcp.Description("Start time as HH:mm (24h)")),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client name")),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("Service id from list_services")),
	), s.bookAppointment)

	s.mcp.AddTool(mcp.NewTool("edit_appointment",
		mcp.WithDescription("Change the time, client or service of an appointment. The date is kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Appointment id")),
		mcp.WithString("time", mcp.Required(), mcp.Description("Start time as HH:mm (24h)")),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client name")),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("Service id from list_services")),
	), s.editAppointment)

	s.mcp.AddTool(mcp.NewTool("delete_appointment",
		mcp.WithDescription("Delete an appointment. Succeeds when the id does not exist."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Appointment id")),
	), s.deleteAppointment)

	s.mcp.AddTool(mcp.NewTool("follow_up",
		mcp.WithDescription("Propose a follow-up booking four weeks after an appointment, on the next open day."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Source appointment id")),
		mcp.WithBoolean("book", mcp.Description("Save the proposed booking immediately")),
	), s.followUp)

	s.mcp.AddTool(mcp.NewTool("set_logo",
		mcp.WithDescription("Set the salon logo from a base64 data URI (png, jpeg, gif, webp, svg; max 2 MB)."),
		mcp.WithString("dataUri", mcp.Required(), mcp.Description("data:image/<type>;base64,<data>")),
	), s.setLogo)

	s.mcp.AddTool(mcp.NewTool("get_booking_guide",
		mcp.WithDescription("Returns the GlamCal booking guide. "+
			"Call this before booking or editing appointments."),
	), s.getBookingGuide)

	// Resource: booking guide.
	s.mcp.AddResource(
		mcp.NewResource(GuideURI, "Booking Guide",
			mcp.WithResourceDescription("How dates, closed days, bookings and follow-ups work in GlamCal."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getMonth(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year := req.GetInt("year", 0)
	month := req.GetInt("month", 0)
	view, err := s.svc.Month(year, time.Month(month))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) getDay(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := datekey.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Day(day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

type dateStatus struct {
	Date     datekey.Key `json:"date"`
	Closed   bool        `json:"closed"`
	NextOpen datekey.Key `json:"nextOpen,omitempty"`
}

func (s *Server) checkDate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := datekey.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	closed, next, err := s.svc.CheckDate(day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := dateStatus{Date: day, Closed: closed}
	if closed {
		out.NextOpen = next
	}
	return jsonResult(out)
}

func (s *Server) listServices(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Services())
}

func (s *Server) searchAppointments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no appointments found"), nil
	}
	return jsonResult(results)
}

func (s *Server) bookAppointment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	form := scheduling.Form{
		Date:       datekey.Key(date),
		Time:       req.GetString("time", ""),
		ClientName: req.GetString("clientName", ""),
		ServiceID:  req.GetString("serviceId", ""),
	}
	appt, err := s.svc.Save(ctx, form, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(appt)
}

func (s *Server) editAppointment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	form := scheduling.Form{
		Time:       req.GetString("time", ""),
		ClientName: req.GetString("clientName", ""),
		ServiceID:  req.GetString("serviceId", ""),
	}
	appt, err := s.svc.Save(ctx, form, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(appt)
}

func (s *Server) deleteAppointment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := s.svc.Delete(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !removed {
		return mcp.NewToolResultText("no appointment with id " + id), nil
	}
	return mcp.NewToolResultText("deleted: " + id), nil
}

func (s *Server) followUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft, err := s.svc.FollowUp(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !req.GetBool("book", false) {
		return jsonResult(draft)
	}
	appt, err := s.svc.Save(ctx, draft.Form(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(appt)
}

func (s *Server) setLogo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("dataUri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	uri, err := logo.Normalize(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.SetLogo(ctx, uri); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("logo updated"), nil
}

func (s *Server) getBookingGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BookingGuide), nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     BookingGuide,
		},
	}, nil
}
