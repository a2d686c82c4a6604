package persist

import (
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// DefaultAppointments returns the sample bookings a fresh install starts
// with, placed on today and tomorrow.
func DefaultAppointments(today datekey.Key) []models.Appointment {
	tomorrow := today.AddDays(1)
	return []models.Appointment{
		{ID: "1", Date: today, Time: "10:00", ClientName: "Jessica L.", Service: "Balayage", Duration: 180},
		{ID: "2", Date: today, Time: "13:30", ClientName: "Sarah K.", Service: "Cut & Style", Duration: 60},
		{ID: "3", Date: tomorrow, Time: "11:00", ClientName: "Emily R.", Service: "Full Head Highlights", Duration: 150},
		{ID: "4", Date: today, Time: "09:00", ClientName: "Chloe B.", Service: "Wash and Blowdry", Duration: 45},
	}
}

// DefaultServices returns the built-in service catalog.
func DefaultServices() []models.Service {
	return []models.Service{
		{ID: "1", Name: "Cut & Style", Duration: 60},
		{ID: "2", Name: "Balayage", Duration: 180},
		{ID: "3", Name: "Full Head Highlights", Duration: 150},
		{ID: "4", Name: "Wash and Blowdry", Duration: 45},
		{ID: "5", Name: "Root Touch-up", Duration: 90},
	}
}

// DefaultClosedDays closes Sundays and nothing else.
func DefaultClosedDays() models.ClosedDaysConfig {
	return models.ClosedDaysConfig{CloseOnSundays: true, CustomRanges: []models.ClosedDateRange{}}
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() models.Settings {
	return models.Settings{
		Theme:      models.ThemeRose,
		Font:       models.FontPoppins,
		ClosedDays: DefaultClosedDays(),
	}
}
