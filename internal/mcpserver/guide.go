package mcpserver

// BookingGuide explains to LLM consumers how GlamCal bookings work.
const BookingGuide = `# GlamCal Booking Guide

GlamCal is the appointment book of a single salon. Every booking is a
client, a service from the catalog, a date and a start time.

## Dates and times

- Dates are calendar days in ` + "`" + `YYYY-MM-DD` + "`" + ` form, in the salon's local time.
- Times are 24-hour ` + "`" + `HH:mm` + "`" + ` (e.g. ` + "`" + `09:30` + "`" + `, ` + "`" + `14:00` + "`" + `).

## Closed days

- The salon may be closed every Sunday and on custom date ranges
  (holidays, training). Ranges include both their start and end day.
- New bookings on a closed day are rejected. Call ` + "`" + `check_date` + "`" + ` first;
  it returns the next open day when the date is closed.
- Existing bookings on a day that later became closed stay where they are.

## Booking

1. Call ` + "`" + `list_services` + "`" + ` and pick a service id.
2. Call ` + "`" + `book_appointment` + "`" + ` with date, time, clientName and serviceId.
   The service name and duration are copied into the booking; later catalog
   changes do not alter it.
3. Two bookings at the same time are allowed; nothing checks for overlaps.

## Editing and follow-ups

- ` + "`" + `edit_appointment` + "`" + ` changes time, client and service. The date never
  changes on edit; delete and re-book to move an appointment to another day.
- ` + "`" + `follow_up` + "`" + ` proposes a booking 4 weeks after an existing one, moved
  forward to the next open day. It returns a draft; pass ` + "`" + `book: true` + "`" + `
  to save it in one step.
- ` + "`" + `delete_appointment` + "`" + ` succeeds even when the id is already gone.

## Logo

- ` + "`" + `set_logo` + "`" + ` accepts a base64 data URI (png, jpeg, gif, webp or svg,
  at most 2 MB). The content must match the declared image type.
`
