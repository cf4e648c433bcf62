package billing

import (
	"fmt"
	"strings"
	"time"

	"sessionsnap/internal/models"
)

const (
	DefaultCurrency = "R$"
	receiptDate     = "02/01/2006"
)

// ReceiptFormatter renders the shareable text receipt of a project.
type ReceiptFormatter struct {
	StudioName string
	Currency   string
	// Location is used to group sessions per day; nil keeps the bookings' own location.
	Location *time.Location
}

// ReceiptText renders a receipt with the default formatter.
func ReceiptText(client models.Client, project models.Project, bookings []models.Booking) (string, error) {
	return ReceiptFormatter{}.Format(client, project, bookings)
}

func (f ReceiptFormatter) Format(client models.Client, project models.Project, bookings []models.Booking) (string, error) {
	cost, err := ProjectCost(bookings, project)
	if err != nil {
		return "", err
	}

	currency := f.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	clientName := client.Name
	if clientName == "" {
		clientName = models.UnknownClientName
	}
	projectName := project.Name
	if projectName == "" {
		projectName = models.UnknownProjectName
	}

	var sb strings.Builder
	if f.StudioName != "" {
		fmt.Fprintf(&sb, "%s\n", f.StudioName)
	}
	sb.WriteString("Receipt\n")
	fmt.Fprintf(&sb, "Client: %s\n", clientName)
	fmt.Fprintf(&sb, "Project: %s\n", projectName)

	sb.WriteString("\nSessions:\n")
	days := GroupSessionsByDay(MergeContiguousSessions(bookings), f.Location)
	if len(days) == 0 {
		sb.WriteString("No sessions booked.\n")
	}
	for _, day := range days {
		fmt.Fprintf(&sb, "%s: %s\n", day.Date.Format(receiptDate), FormatRanges(day.Ranges))
	}

	sb.WriteString("\nSummary:\n")
	fmt.Fprintf(&sb, "Total hours: %.2f\n", cost.TotalHours)
	fmt.Fprintf(&sb, "Price per hour: %s %.2f\n", currency, cost.PricePerHour)
	fmt.Fprintf(&sb, "Total amount: %s %.2f\n", currency, cost.TotalAmount)

	return sb.String(), nil
}
