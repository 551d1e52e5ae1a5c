package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"hazacheck/internal/domain"
)

const (
	messagePreviewRunes = 300
	displayTimeLayout   = "2006. 1. 2. 15:04"
)

// Formatter renders events for staff channels
type Formatter struct {
	AdminURL string
	Location *time.Location
}

type field struct {
	icon  string
	label string
	value string
}

// Subject is a one-line summary used for email subjects
func (f Formatter) Subject(e Event) string {
	switch e.Kind {
	case EventInquiryCreated:
		return fmt.Sprintf("[하자체크] 새 문의 #%d %s", e.Inquiry.ID, e.Inquiry.Name)
	case EventStatusChanged:
		return fmt.Sprintf("[하자체크] 문의 #%d 상태 변경: %s", e.InquiryID, e.NewStatus.Label())
	}
	return "[하자체크] 알림"
}

// HTML renders e in Telegram's HTML subset. All user supplied text is escaped.
func (f Formatter) HTML(e Event) string {
	return f.render(e, true)
}

// Text renders e as plain text
func (f Formatter) Text(e Event) string {
	return f.render(e, false)
}

func (f Formatter) render(e Event, asHTML bool) string {
	esc := func(s string) string { return s }
	bold := func(s string) string { return s }
	if asHTML {
		esc = html.EscapeString
		bold = func(s string) string { return "<b>" + s + "</b>" }
	}

	var title string
	var fields []field
	var body string
	link := f.AdminURL

	switch e.Kind {
	case EventInquiryCreated:
		inq := e.Inquiry
		title = "🚨 " + bold("새로운 문의가 접수되었습니다!")
		fields = []field{
			{"🆔", "문의 ID", fmt.Sprintf("#%d", inq.ID)},
			{"👤", "이름", inq.Name},
			{"📞", "연락처", inq.Phone},
		}
		if inq.Email != nil && *inq.Email != "" {
			fields = append(fields, field{"📧", "이메일", *inq.Email})
		}
		fields = append(fields,
			field{"🏢", "아파트", inq.Apartment},
			field{"📐", "평형", inq.Size + "타입"},
			field{"📅", "희망 점검일", orDefault(inq.MoveInDate, "미정")},
			field{"➕", "추가옵션", optionsText(inq.Options)},
			field{"⏰", "접수시간", f.formatTime(inq.CreatedAt)},
		)
		if preview := truncateRunes(strings.TrimSpace(inq.Message), messagePreviewRunes); preview != "" {
			body = "💬 " + bold("문의내용:") + "\n" + esc(preview)
		}
		if link != "" {
			link = fmt.Sprintf("%s?id=%d", link, inq.ID)
		}
	case EventStatusChanged:
		title = "📝 " + bold("문의 상태가 변경되었습니다")
		fields = []field{
			{"🆔", "문의 ID", fmt.Sprintf("#%d", e.InquiryID)},
			{"📊", "상태 변경", statusText(e.OldStatus) + " → " + statusText(e.NewStatus)},
		}
		if e.Note != "" {
			fields = append(fields, field{"📝", "관리자 메모", e.Note})
		}
		fields = append(fields, field{"⏰", "변경 시간", f.formatTime(e.At)})
	default:
		return ""
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, fl := range fields {
		fmt.Fprintf(&b, "%s %s %s\n", fl.icon, bold(fl.label+":"), esc(fl.value))
	}
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	if link != "" {
		b.WriteString("\n🔗 ")
		b.WriteString(bold("관리자 페이지:"))
		b.WriteString(" ")
		b.WriteString(esc(link))
	}
	return strings.TrimSpace(b.String())
}

func (f Formatter) formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(displayTimeLayout)
}

func statusText(s domain.Status) string {
	if emoji := s.Emoji(); emoji != "" {
		return emoji + " " + s.Label()
	}
	return s.Label()
}

func optionsText(opts domain.Options) string {
	if len(opts) == 0 {
		return "없음"
	}
	return strings.Join(opts, ", ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
