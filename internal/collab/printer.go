package collab

import (
	"context"
	"fmt"

	"example.com/tableside/internal/models"

	"github.com/rs/zerolog/log"
)

// Ticket is one kitchen ticket: the items of a single department, rendered
// for its printer.
type Ticket struct {
	Department string
	Printer    string
	Table      string
	Waiter     string
	Lines      []string
}

// TicketPrinter delivers tickets to department printers.
type TicketPrinter interface {
	Print(ctx context.Context, ticket Ticket) error
}

// LogPrinter writes tickets to the log. It stands in wherever no physical
// printer transport is configured.
type LogPrinter struct{}

func NewLogPrinter() *LogPrinter { return &LogPrinter{} }

func (p *LogPrinter) Print(ctx context.Context, ticket Ticket) error {
	log.Info().
		Str("department", ticket.Department).
		Str("printer", ticket.Printer).
		Str("table", ticket.Table).
		Strs("lines", ticket.Lines).
		Msg("Printing ticket")
	return nil
}

// BuildTickets splits an order's items into per-department tickets using the
// routing in settings. Separator rows never print.
func BuildTickets(order models.Order, settings models.Settings) []Ticket {
	byDept := make(map[string][]string)
	var depts []string

	for _, item := range order.Items {
		if item.Separator {
			continue
		}
		dept := settings.DepartmentFor(item.MenuItem.Category)
		if _, seen := byDept[dept.Name]; !seen {
			depts = append(depts, dept.Name)
		}
		line := fmt.Sprintf("%dx %s", item.Quantity, item.MenuItem.Name)
		if item.Note != "" {
			line += " (" + item.Note + ")"
		}
		byDept[dept.Name] = append(byDept[dept.Name], line)
	}

	tickets := make([]Ticket, 0, len(depts))
	for _, name := range depts {
		var printer string
		for _, d := range settings.Departments {
			if d.Name == name {
				printer = d.Printer
				break
			}
		}
		tickets = append(tickets, Ticket{
			Department: name,
			Printer:    printer,
			Table:      order.Table,
			Waiter:     order.Waiter,
			Lines:      byDept[name],
		})
	}
	return tickets
}
