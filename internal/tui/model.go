package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"compliance/internal/domain"
)

// ClassifierPort is the TUI-facing subset of the classification service.
type ClassifierPort interface {
	Classify(ctx context.Context, text string) (domain.Verdict, error)
}

type record struct {
	text    string
	verdict domain.Verdict
}

// Model is the Bubble Tea model for the interactive review session.
type Model struct {
	service ClassifierPort
	input   textinput.Model
	vp      viewport.Model
	history []record
	cursor  int
	status  string
	busy    bool
	ready   bool
}

type classifiedMsg struct {
	text    string
	verdict domain.Verdict
	err     error
}

// New creates a new TUI model instance.
func New(service ClassifierPort, ruleCount int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "输入待审查文本，回车开始分析"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service: service,
		input:   ti,
		vp:      vp,
		status:  fmt.Sprintf("已加载 %d 条合规规则。输入文本开始审查。", ruleCount),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header + status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.vp.Width = max(20, msg.Width)
		m.vp.Height = max(3, vh-rh)
		m.vp.SetContent(m.renderCurrent())
		return m, nil
	case classifiedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "分析失败: " + msg.err.Error()
			m.vp.SetContent(m.renderCurrent())
			return m, nil
		}
		m.history = append(m.history, record{text: msg.text, verdict: msg.verdict})
		m.cursor = len(m.history) - 1
		m.status = fmt.Sprintf("已审查 %d 条，↑/↓ 浏览历史", len(m.history))
		m.vp.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" && !m.busy {
				m.busy = true
				m.status = "正在分析…"
				m.input.Reset()
				return m, classifyCmd(m.service, text)
			}
		case "down":
			if len(m.history) > 0 {
				m.cursor = (m.cursor + 1) % len(m.history)
				m.vp.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.history) > 0 {
				m.cursor = (m.cursor - 1 + len(m.history)) % len(m.history)
				m.vp.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the currently selected verdict.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("合规审查")
	result := resultBoxStyle.Render(m.vp.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + result + "\n" + input + "\n" + status
}

func classifyCmd(service ClassifierPort, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		verdict, err := service.Classify(ctx, text)
		return classifiedMsg{text: text, verdict: verdict, err: err}
	}
}

func (m Model) renderCurrent() string {
	if len(m.history) == 0 {
		return "尚无审查结果。"
	}
	r := m.history[m.cursor]
	v := r.verdict

	status := compliantStyle.Render("✅ 合规")
	if v.IsViolation {
		status = violationStyle.Render("⚠️ 违规")
	}
	method := "深度分析"
	if v.PreCheckUsed {
		method = "预检查"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "第 %d/%d 条\n\n", m.cursor+1, len(m.history))
	fmt.Fprintf(&b, "文本：%s\n\n", r.text)
	fmt.Fprintf(&b, "%s  置信度：%s  分析方式：%s\n", status, confidenceLabel(v.Confidence), method)
	if len(v.TriggeredEvents) > 0 {
		fmt.Fprintf(&b, "触发事件：%s\n", strings.Join(v.TriggeredEvents, "、"))
	}
	fmt.Fprintf(&b, "理由：%s", v.Reason)
	if v.RawResponse != "" {
		b.WriteString("\n\n" + dimStyle.Render("原始响应：\n"+v.RawResponse))
	}
	return b.String()
}

func confidenceLabel(c domain.Confidence) string {
	switch c {
	case domain.ConfidenceHigh:
		return "高"
	case domain.ConfidenceLow:
		return "低"
	default:
		return "中"
	}
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	violationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	compliantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
