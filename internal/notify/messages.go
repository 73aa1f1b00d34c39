package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Booking carries the fields the booking and status emails render.
type Booking struct {
	PatientEmail      string
	ProfessionalEmail string
	ProfessionalName  string
	Specialty         string
	Date              time.Time
	Time              string
	PatientNotes      string
}

func displayDate(d time.Time) string {
	return d.Format("Mon Jan 02 2006")
}

func BookingRequestForProfessional(b Booking) Message {
	date := displayDate(b.Date)
	notes := b.PatientNotes
	if notes == "" {
		notes = "N/A"
	}
	return Message{
		To:      b.ProfessionalEmail,
		Subject: "New Appointment Request on Elumia",
		Text: fmt.Sprintf("You have a new appointment request from %s for %s at %s. Status: Pending.",
			b.PatientEmail, date, b.Time),
		HTML: fmt.Sprintf(`<p>Dear %s,</p>
<p>You have a new appointment request on Elumia:</p>
<ul>
  <li><strong>Patient:</strong> %s</li>
  <li><strong>Date:</strong> %s</li>
  <li><strong>Time:</strong> %s</li>
  <li><strong>Status:</strong> Pending</li>
  <li><strong>Patient Notes:</strong> %s</li>
</ul>
<p>Please log in to your Elumia Professional Dashboard to accept or reject this appointment.</p>
<p>Thank you,<br>Elumia Team</p>`,
			html.EscapeString(b.ProfessionalName), html.EscapeString(b.PatientEmail),
			date, html.EscapeString(b.Time), html.EscapeString(notes)),
	}
}

func BookingRequestForPatient(b Booking) Message {
	date := displayDate(b.Date)
	return Message{
		To:      b.PatientEmail,
		Subject: "Your Appointment Request on Elumia",
		Text: fmt.Sprintf("Your appointment request with %s for %s at %s has been sent. Status: Pending.",
			b.ProfessionalName, date, b.Time),
		HTML: fmt.Sprintf(`<p>Dear %s,</p>
<p>Your appointment request with %s has been sent:</p>
<ul>
  <li><strong>Professional:</strong> %s (%s)</li>
  <li><strong>Date:</strong> %s</li>
  <li><strong>Time:</strong> %s</li>
  <li><strong>Status:</strong> Pending (awaiting professional's confirmation)</li>
</ul>
<p>You will receive another email once the professional confirms your appointment.</p>
<p>Thank you,<br>Elumia Team</p>`,
			html.EscapeString(b.PatientEmail), html.EscapeString(b.ProfessionalName),
			html.EscapeString(b.ProfessionalName), html.EscapeString(b.Specialty),
			date, html.EscapeString(b.Time)),
	}
}

// StatusChangeForPatient tells the patient their request was decided.
// An empty professional name renders as "A Professional".
func StatusChangeForPatient(b Booking, status string) Message {
	date := displayDate(b.Date)
	name := b.ProfessionalName
	if name == "" {
		name = "A Professional"
	}
	upper := strings.ToUpper(status)
	return Message{
		To:      b.PatientEmail,
		Subject: fmt.Sprintf("Your Appointment with %s is %s", name, upper),
		Text: fmt.Sprintf("Your appointment for %s at %s with %s has been %s.",
			date, b.Time, name, status),
		HTML: fmt.Sprintf(`<p>Dear %s,</p>
<p>Your appointment for <strong>%s at %s</strong> with <strong>%s</strong> has been <strong>%s</strong>.</p>
<p>Thank you,<br>Elumia Team</p>`,
			html.EscapeString(b.PatientEmail), date, html.EscapeString(b.Time),
			html.EscapeString(name), upper),
	}
}
