package main

import (
	"chatty/domain"
	"chatty/observability"
	"chatty/sink"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func (s *shell) table(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(s.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func (s *shell) whoAmI(context.Context, []string) error {
	state := s.sessions.State()
	if state.CurrentUser == nil {
		s.printf("not logged in\n")
		return nil
	}
	user := state.CurrentUser
	channel := "disconnected"
	if state.Channel != nil && state.Channel.Connected() {
		channel = "connected"
	}
	expires := "unknown"
	if at, ok := s.api.SessionExpiry(); ok {
		expires = at.Local().Format(time.DateTime)
	}

	table := s.table("Field", "Value")
	table.AppendBulk([][]string{
		{"id", user.ID},
		{"name", user.FullName},
		{"email", user.Email},
		{"avatar", lo.Ternary(user.ProfilePic == "", "none", "set")},
		{"member since", user.CreatedAt.Local().Format(time.DateOnly)},
		{"live updates", channel},
		{"session expires", expires},
		{"theme", string(s.themes.Theme())},
	})
	table.Render()
	return nil
}

func (s *shell) renderContacts(contacts []domain.User) {
	if len(contacts) == 0 {
		s.printf("no contacts\n")
		return
	}
	table := s.table("Id", "Name", "Email", "Status")
	for _, u := range contacts {
		status := "offline"
		if s.sessions.IsOnline(u.ID) {
			status = s.paint(color.FgGreen, "online")
		}
		table.Append([]string{u.ID, u.FullName, u.Email, status})
	}
	table.Render()
}

func (s *shell) renderHistory(messages []domain.Message) {
	if len(messages) == 0 {
		s.printf("no messages yet\n")
		return
	}
	table := s.table("Time", "From", "Message")
	table.AppendBulk(lo.Map(messages, func(m domain.Message, _ int) []string {
		body := s.muted.Mask(m.Text)
		if m.Image != "" {
			body = strings.TrimSpace("[image] " + body)
		}
		return []string{m.CreatedAt.Local().Format(time.DateTime), s.displayName(m.SenderID), body}
	}))
	table.Render()
}

func (s *shell) renderToasts(toasts []sink.Toast) {
	if len(toasts) == 0 {
		s.printf("no notifications\n")
		return
	}
	table := s.table("Time", "Level", "Message")
	for _, t := range toasts {
		table.Append([]string{t.At.Format(time.TimeOnly), string(t.Level), t.Message})
	}
	table.Render()
}

func (s *shell) renderStats(stats observability.Stats) {
	table := s.table("Metric", "Value")
	table.AppendBulk([][]string{
		{"uptime", stats.Uptime.Round(time.Second).String()},
		{"remote calls", fmt.Sprint(stats.RemoteCalls)},
		{"remote failures", fmt.Sprint(stats.RemoteFailures)},
		{"success notifications", fmt.Sprint(stats.SuccessToasts)},
		{"error notifications", fmt.Sprint(stats.ErrorToasts)},
		{"goroutines", fmt.Sprint(stats.Goroutines)},
		{"heap (MB)", fmt.Sprint(stats.AllocMemMb)},
		{"rss (MB)", fmt.Sprint(stats.RSSMb)},
		{"cpu (%)", fmt.Sprintf("%.1f", stats.CPUPercent)},
		{"gc cycles", fmt.Sprint(stats.NumGC)},
	})
	table.Render()
}
