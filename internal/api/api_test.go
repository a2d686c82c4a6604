package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/starford/glamcal/internal/auth"
	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/models"
	"github.com/starford/glamcal/internal/scheduling"
	"github.com/starford/glamcal/internal/testutil"
)

const today = "2024-06-10" // a Monday

// testEnv sets up a temp data dir, service and router. A nil checker means
// auth is disabled.
func testEnv(t *testing.T, checker *auth.Checker, appts []models.Appointment, opts ...scheduling.Option) (*testutil.Env, http.Handler) {
	t.Helper()
	env := testutil.TestService(t, today, appts, opts...)
	router := NewRouter(env.Service, checker, nil, ics.ExportOptions{Location: time.UTC, ProductID: "-//glamcal//test//EN"})
	return env, router
}

func do(t *testing.T, h http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func booking(date, tm, client, serviceID string) map[string]string {
	return map[string]string{"date": date, "time": tm, "clientName": client, "serviceId": serviceID}
}

func TestCreateAndGetAppointment(t *testing.T) {
	_, router := testEnv(t, nil, nil)

	w := do(t, router, http.MethodPost, "/appointments", booking("2024-06-11", "14:30", "Maria", "2"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[models.Appointment](t, w)
	if created.ID == "" || created.Service != "Balayage" || created.Duration != 180 {
		t.Errorf("created = %+v", created)
	}

	w = do(t, router, http.MethodGet, "/appointments/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := decode[models.Appointment](t, w); got != created {
		t.Errorf("get = %+v, want %+v", got, created)
	}

	w = do(t, router, http.MethodGet, "/selection", nil)
	if sel := decode[SelectionResponse](t, w); sel.Date != "2024-06-11" {
		t.Errorf("selection after create = %s, want 2024-06-11", sel.Date)
	}
}

func TestCreateOnClosedDay(t *testing.T) {
	_, router := testEnv(t, nil, nil)
	w := do(t, router, http.MethodPost, "/appointments", booking("2024-06-16", "10:00", "Maria", "1"))
	if w.Code != http.StatusConflict {
		t.Errorf("Sunday booking = %d, want 409", w.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	_, router := testEnv(t, nil, nil)
	w := do(t, router, http.MethodPost, "/appointments", booking("2024-06-11", "25:00", "  ", "99"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decode[errResponse](t, w)
	if body.Fields["clientName"] == "" || body.Fields["time"] == "" {
		t.Errorf("fields = %v", body.Fields)
	}

	w = do(t, router, http.MethodPost, "/appointments", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", w.Code)
	}
}

func TestUpdateKeepsOriginalDate(t *testing.T) {
	appt := models.Appointment{ID: "a1", Date: "2024-06-10", Time: "10:00", ClientName: "Jess", Service: "Cut & Style", Duration: 60}
	_, router := testEnv(t, nil, []models.Appointment{appt})

	if w := do(t, router, http.MethodPut, "/selection", SelectionRequest{Date: "2024-06-15"}); w.Code != http.StatusOK {
		t.Fatalf("select = %d", w.Code)
	}
	w := do(t, router, http.MethodPut, "/appointments/a1", booking("2024-06-15", "11:00", "Jessica", "2"))
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[models.Appointment](t, w)
	if got.Date != "2024-06-10" || got.Time != "11:00" || got.Service != "Balayage" {
		t.Errorf("updated = %+v", got)
	}

	w = do(t, router, http.MethodPut, "/appointments/nope", booking("", "11:00", "X", "1"))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", w.Code)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	appt := models.Appointment{ID: "a1", Date: "2024-06-10", Time: "10:00", ClientName: "Jess", Service: "Cut & Style", Duration: 60}
	_, router := testEnv(t, nil, []models.Appointment{appt})
	for i := 0; i < 2; i++ {
		if w := do(t, router, http.MethodDelete, "/appointments/a1", nil); w.Code != http.StatusNoContent {
			t.Errorf("delete #%d = %d, want 204", i+1, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/appointments/a1", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
}

func TestFollowUpSkipsClosure(t *testing.T) {
	appt := models.Appointment{ID: "a1", Date: "2024-06-01", Time: "10:00", ClientName: "Jess", Service: "Balayage", Duration: 180}
	_, router := testEnv(t, nil, []models.Appointment{appt})

	w := do(t, router, http.MethodPost, "/settings/closed-days/ranges", models.ClosedDateRange{Start: "2024-06-29", End: "2024-06-30"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add range = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/appointments/a1/follow-up", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("follow-up = %d, body = %s", w.Code, w.Body.String())
	}
	draft := decode[scheduling.Draft](t, w)
	if draft.ID != "" || draft.Date != "2024-07-01" || draft.ServiceID != "2" {
		t.Errorf("draft = %+v", draft)
	}

	w = do(t, router, http.MethodGet, "/appointments/a1/draft", nil)
	if d := decode[scheduling.Draft](t, w); d.ID != "a1" || d.Date != "2024-06-01" {
		t.Errorf("edit draft = %+v", d)
	}
}

func TestFollowUpSearchExhausted(t *testing.T) {
	appt := models.Appointment{ID: "a1", Date: "2024-06-01", Time: "10:00", ClientName: "Jess", Service: "Balayage", Duration: 180}
	_, router := testEnv(t, nil, []models.Appointment{appt}, scheduling.WithConfig(scheduling.Config{MaxSearchDays: 5}))

	do(t, router, http.MethodPost, "/settings/closed-days/ranges", models.ClosedDateRange{Start: "2024-06-20", End: "2024-12-31"})
	if w := do(t, router, http.MethodPost, "/appointments/a1/follow-up", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("follow-up = %d, want 422", w.Code)
	}
}

func TestMonthAndDayViews(t *testing.T) {
	appts := []models.Appointment{
		{ID: "a", Date: "2024-06-12", Time: "15:00", ClientName: "B", Service: "Cut & Style", Duration: 60},
		{ID: "b", Date: "2024-06-12", Time: "09:00", ClientName: "A", Service: "Cut & Style", Duration: 60},
	}
	_, router := testEnv(t, nil, appts)

	w := do(t, router, http.MethodGet, "/calendar/2024/6", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("month = %d", w.Code)
	}
	mv := decode[scheduling.MonthView](t, w)
	if mv.LeadingBlanks != 6 || len(mv.Days) != 30 {
		t.Errorf("month view: blanks=%d days=%d", mv.LeadingBlanks, len(mv.Days))
	}
	if c := mv.Days[11]; c.Count != 2 || c.Density != scheduling.DensityLight {
		t.Errorf("June 12 cell = %+v", c)
	}
	if !mv.Days[15].Closed {
		t.Error("June 16 (Sunday) should be closed")
	}

	if w := do(t, router, http.MethodGet, "/calendar/2024/13", nil); w.Code != http.StatusBadRequest {
		t.Errorf("month 13 = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/calendar/x/6", nil); w.Code != http.StatusBadRequest {
		t.Errorf("year x = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/days/2024-06-12", nil)
	dv := decode[scheduling.DayView](t, w)
	if len(dv.Appointments) != 2 || dv.Appointments[0].Time != "09:00" {
		t.Errorf("day view = %+v", dv)
	}
	if w := do(t, router, http.MethodGet, "/days/June-12", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestSelection(t *testing.T) {
	_, router := testEnv(t, nil, nil)

	if w := do(t, router, http.MethodPut, "/selection", SelectionRequest{Date: "2024-06-16"}); w.Code != http.StatusConflict {
		t.Errorf("select Sunday = %d, want 409", w.Code)
	}
	w := do(t, router, http.MethodPut, "/selection", SelectionRequest{Date: "2024-06-11"})
	if w.Code != http.StatusOK {
		t.Fatalf("select = %d", w.Code)
	}
	if sel := decode[SelectionResponse](t, w); sel.Date != "2024-06-11" || sel.Closed {
		t.Errorf("selection = %+v", sel)
	}
}

func TestSettingsOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, nil, nil)

	w := do(t, router, http.MethodGet, "/settings", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	st := decode[models.Settings](t, w)
	st.Theme = models.ThemeMint

	if w := do(t, router, http.MethodPut, "/settings", st, "If-Match", `"stale"`); w.Code != http.StatusConflict {
		t.Errorf("stale If-Match = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPut, "/settings", st, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") == etag {
		t.Error("ETag should change after update")
	}
	if got := decode[models.Settings](t, w); got.Theme != models.ThemeMint {
		t.Errorf("theme = %q", got.Theme)
	}

	st.Font = "Comic Sans"
	if w := do(t, router, http.MethodPut, "/settings", st); w.Code != http.StatusBadRequest {
		t.Errorf("bad font = %d, want 400", w.Code)
	}
}

func TestClosedDayEndpoints(t *testing.T) {
	_, router := testEnv(t, nil, nil)

	w := do(t, router, http.MethodPut, "/settings/closed-days/sundays", SundaysRequest{Closed: false})
	if st := decode[models.Settings](t, w); st.ClosedDays.CloseOnSundays {
		t.Error("Sunday closure should be off")
	}

	if w := do(t, router, http.MethodPost, "/settings/closed-days/ranges", models.ClosedDateRange{Start: "2024-07-05", End: "2024-07-01"}); w.Code != http.StatusBadRequest {
		t.Errorf("reversed range = %d, want 400", w.Code)
	}
	do(t, router, http.MethodPost, "/settings/closed-days/ranges", models.ClosedDateRange{Start: "2024-08-01", End: "2024-08-02"})
	w = do(t, router, http.MethodPost, "/settings/closed-days/ranges", models.ClosedDateRange{Start: "2024-07-01", End: "2024-07-05"})
	st := decode[models.Settings](t, w)
	if len(st.ClosedDays.CustomRanges) != 2 || st.ClosedDays.CustomRanges[0].Start != "2024-07-01" {
		t.Fatalf("ranges = %v", st.ClosedDays.CustomRanges)
	}

	w = do(t, router, http.MethodDelete, "/settings/closed-days/ranges/0", nil)
	st = decode[models.Settings](t, w)
	if len(st.ClosedDays.CustomRanges) != 1 || st.ClosedDays.CustomRanges[0].Start != "2024-08-01" {
		t.Errorf("after remove = %v", st.ClosedDays.CustomRanges)
	}
	if w := do(t, router, http.MethodDelete, "/settings/closed-days/ranges/5", nil); w.Code != http.StatusNotFound {
		t.Errorf("remove out of range = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/settings/closed-days/ranges/x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("remove bad index = %d, want 400", w.Code)
	}
}

const holidayICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:1@test\r\nDTSTART;VALUE=DATE:20240722\r\nDTEND;VALUE=DATE:20240727\r\nSUMMARY:Break\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nUID:2@test\r\nDTSTART;VALUE=DATE:20250101\r\nSUMMARY:Outside\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportClosures(t *testing.T) {
	env, router := testEnv(t, nil, nil)

	w := do(t, router, http.MethodPost, "/settings/closed-days/import?from=2024-06-01&to=2024-12-31", holidayICS)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[ImportResponse](t, w); got.Found != 1 || got.Added != 1 {
		t.Errorf("import = %+v", got)
	}
	ranges := env.Service.Settings().ClosedDays.CustomRanges
	if len(ranges) != 1 || ranges[0] != (models.ClosedDateRange{Start: "2024-07-22", End: "2024-07-26"}) {
		t.Errorf("ranges = %v", ranges)
	}

	w = do(t, router, http.MethodPost, "/settings/closed-days/import?from=2024-06-01&to=2024-12-31", holidayICS)
	if got := decode[ImportResponse](t, w); got.Added != 0 {
		t.Errorf("re-import added %d, want 0", got.Added)
	}

	if w := do(t, router, http.MethodPost, "/settings/closed-days/import?from=bad", holidayICS); w.Code != http.StatusBadRequest {
		t.Errorf("bad window = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/settings/closed-days/import?from=0001-01-01&to=9999-12-31", holidayICS); w.Code != http.StatusBadRequest {
		t.Errorf("oversized window = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/settings/closed-days/import", "not a calendar"); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", w.Code)
	}
}

func multipartFile(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestLogoUpload(t *testing.T) {
	_, router := testEnv(t, nil, nil)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	body, ct := multipartFile(t, "logo.png", "image/png", png)
	req := httptest.NewRequest(http.MethodPost, "/settings/logo", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	st := decode[models.Settings](t, w)
	if st.Logo == nil || !strings.HasPrefix(*st.Logo, "data:image/png;base64,") {
		t.Errorf("logo = %v", st.Logo)
	}

	body, ct = multipartFile(t, "logo.png", "image/png", []byte("plain text"))
	req = httptest.NewRequest(http.MethodPost, "/settings/logo", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("fake png = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/settings/logo", nil)
	if st := decode[models.Settings](t, w); st.Logo != nil {
		t.Errorf("logo after clear = %v", *st.Logo)
	}
}

func TestServicesEndpoints(t *testing.T) {
	_, router := testEnv(t, nil, nil)

	w := do(t, router, http.MethodPost, "/services", ServiceRequest{Name: "Gel Nails", Duration: 90})
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d, body = %s", w.Code, w.Body.String())
	}
	added := decode[models.Service](t, w)

	if w := do(t, router, http.MethodPost, "/services", ServiceRequest{Name: "", Duration: 0}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid service = %d, want 400", w.Code)
	}

	list := decode[ServiceListResponse](t, do(t, router, http.MethodGet, "/services", nil))
	if len(list.Services) != 6 {
		t.Errorf("services = %d, want 6", len(list.Services))
	}

	for i := 0; i < 2; i++ {
		if w := do(t, router, http.MethodDelete, "/services/"+added.ID, nil); w.Code != http.StatusNoContent {
			t.Errorf("delete #%d = %d", i+1, w.Code)
		}
	}
}

func TestSearchAndHistory(t *testing.T) {
	appts := []models.Appointment{
		{ID: "a", Date: "2024-05-01", Time: "10:00", ClientName: "Maria Lopez", Service: "Balayage", Duration: 180},
		{ID: "b", Date: "2024-06-01", Time: "10:00", ClientName: "Maria Lopez", Service: "Cut & Style", Duration: 60},
		{ID: "c", Date: "2024-06-02", Time: "10:00", ClientName: "Anna", Service: "Cut & Style", Duration: 60},
	}
	_, router := testEnv(t, nil, appts)

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
	res := decode[SearchResponse](t, do(t, router, http.MethodGet, "/search?q=maria", nil))
	if len(res.Results) != 2 {
		t.Errorf("results = %d, want 2", len(res.Results))
	}

	hist := decode[AppointmentListResponse](t, do(t, router, http.MethodGet, "/clients/maria%20lopez/history", nil))
	if len(hist.Appointments) != 2 || hist.Appointments[0].ID != "b" {
		t.Errorf("history = %+v", hist.Appointments)
	}
	hist = decode[AppointmentListResponse](t, do(t, router, http.MethodGet, "/clients/nobody/history", nil))
	if hist.Appointments == nil || len(hist.Appointments) != 0 {
		t.Errorf("empty history = %+v", hist.Appointments)
	}
}

func TestExportICS(t *testing.T) {
	appts := []models.Appointment{{ID: "a1", Date: "2024-06-11", Time: "10:00", ClientName: "Maria", Service: "Balayage", Duration: 180}}
	_, router := testEnv(t, nil, appts)

	w := do(t, router, http.MethodGet, "/calendar.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "UID:a1@glamcal", "DTSTART:20240611T100000Z", "RRULE:FREQ=WEEKLY;BYDAY=SU"} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	checker, err := auth.NewChecker(auth.ModeToken, "secret", "")
	if err != nil {
		t.Fatal(err)
	}
	_, router := testEnv(t, checker, nil)

	if w := do(t, router, http.MethodGet, "/services", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/services", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/services", nil, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_Hash(t *testing.T) {
	hash, err := auth.Hash("secret")
	if err != nil {
		t.Fatal(err)
	}
	checker, err := auth.NewChecker(auth.ModeHash, "", hash)
	if err != nil {
		t.Fatal(err)
	}
	_, router := testEnv(t, checker, nil)

	if w := do(t, router, http.MethodGet, "/services", nil, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/services", nil, "Authorization", "Bearer nope"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

