package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ftahirops/disktriage/model"
)

// maxSummaryEvents caps the event lines shown per disk in the summary.
const maxSummaryEvents = 10

// RenderSummary renders one panel per record.
func RenderSummary(recs []*model.DiskErrorRecord, now time.Time) string {
	if len(recs) == 0 {
		return okStyle.Render("No disk errors found.") + "\n"
	}
	var panels []string
	for _, r := range recs {
		panels = append(panels, panelStyle.Render(renderRecord(r, now, maxSummaryEvents)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...) + "\n"
}

func renderRecord(r *model.DiskErrorRecord, now time.Time, maxEvents int) string {
	var sb strings.Builder

	title := r.Device
	if r.Model != "" || r.Serial != "" {
		title += "  " + strings.TrimSpace(r.Model+" "+r.Serial)
	}
	sb.WriteString(recordStyle(r).Render(title))
	sb.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-15s", label)))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}
	field("Host", r.Host)
	field("Target", r.Target)
	field("SAS index", r.SASIndex)
	field("WWN", r.WWN)
	field("Location", r.Location)
	field("Mounts", strings.Join(r.MountPoints, ", "))

	if t, ok := r.EarliestError(); ok {
		field("Earliest error", fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04:05"), humanize.RelTime(t, now, "ago", "from now")))
	}
	field("Events", fmt.Sprintf("%d sector, %d block, %d smart",
		r.CountKind(model.KindSector), r.CountKind(model.KindBlock), r.CountKind(model.KindSmart)))
	if len(r.RawLogLines) > 0 {
		field("Log lines", humanize.Comma(int64(len(r.RawLogLines))))
	}
	if r.IOErrors > 0 {
		field("ioerr_cnt", humanize.Comma(int64(r.IOErrors)))
	}
	if h := r.Health; h != nil {
		field("smartctl", healthText(h))
	}
	if len(r.SmartAttributes) > 0 {
		var parts []string
		for _, k := range model.SortedKeys(r.SmartAttributes) {
			parts = append(parts, fmt.Sprintf("%s=%d", model.AttributeLabel(k), r.SmartAttributes[k]))
		}
		field("SMART", strings.Join(parts, " "))
	}
	if h := r.SmartHistory; h != nil {
		field("History", fmt.Sprintf("%s .. %s, %d changes",
			h.Start.Format("2006-01-02"), h.End.Format("2006-01-02"), len(h.Changes)))
	}

	if len(r.ErrorEvents) > 0 {
		sb.WriteString(headerStyle.Render("Events"))
		sb.WriteString("\n")
		for i, e := range r.ErrorEvents {
			if maxEvents > 0 && i >= maxEvents {
				sb.WriteString(dimStyle.Render(fmt.Sprintf("  ... %d more", len(r.ErrorEvents)-i)))
				sb.WriteString("\n")
				break
			}
			sb.WriteString("  ")
			sb.WriteString(eventStyle(e.Kind).Render(EventText(e)))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// EventText is a one-line description of an event.
func EventText(e model.ErrorEvent) string {
	ts := e.Time.Format("Jan 02 15:04:05")
	sas := ""
	if e.SASIndex != "" {
		sas = " sas=" + e.SASIndex
	}
	switch e.Kind {
	case model.KindSector:
		return fmt.Sprintf("%s %s sector %d%s", ts, e.ErrorType, e.Sector, sas)
	case model.KindBlock:
		part := "disk"
		if e.BlockIndex >= 0 {
			part = fmt.Sprintf("part %d", e.BlockIndex)
		}
		return fmt.Sprintf("%s I/O error %s logical block %d%s", ts, part, e.LogicalBlock, sas)
	case model.KindSmart:
		return fmt.Sprintf("%s SMART %s = %d", ts, model.AttributeLabel(e.AttributeKey), e.AttributeValue)
	}
	return ts + " " + string(e.Kind)
}

func healthText(h *model.SmartHealth) string {
	var flags []string
	add := func(set bool, s string) {
		if set {
			flags = append(flags, s)
		}
	}
	add(h.CommandLineError, "cmdline-error")
	add(h.DeviceOpenFailed, "open-failed")
	add(h.SmartCommandFailed, "smart-cmd-failed")
	add(h.DiskFailing, "DISK-FAILING")
	add(h.PrefailAttributes, "prefail-now")
	add(h.PastPrefailAttributes, "prefail-past")
	add(h.ErrorLogHasErrors, "error-log")
	add(h.SelfTestLogHasErrors, "selftest-log")
	if len(flags) == 0 {
		return "ok"
	}
	return fmt.Sprintf("exit %d: %s", h.ExitStatus, strings.Join(flags, ", "))
}
