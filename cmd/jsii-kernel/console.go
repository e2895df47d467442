package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/jsii-kernel/engine"
	"github.com/wippyai/jsii-kernel/linker"
	"github.com/wippyai/jsii-kernel/runtime"
	"github.com/wippyai/jsii-kernel/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	requestStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Send requests to an in-process kernel interactively",
	Long: `Console starts a kernel in this process and reads one JSON request per
line, e.g.

  {"api": "create", "fqn": "calc.Adder", "args": [10]}

The module "go:calc" is always available. Responses and the trace of each
request are shown below it.`,
	RunE: runConsole,
}

// maxExchanges is how many past requests the console keeps on screen.
const maxExchanges = 8

// traceBuffer collects trace lines between two requests.
type traceBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *traceBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *traceBuffer) Sync() error { return nil }

func (b *traceBuffer) take() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimRight(b.buf.String(), "\n")
	b.buf.Reset()
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func newTraceLogger(b *traceBuffer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	return zap.New(zapcore.NewCore(enc, b, zapcore.InfoLevel))
}

type exchange struct {
	request  string
	response wire.Response
	trace    []string
	err      error
}

type consoleModel struct {
	rt      *runtime.Runtime
	trace   *traceBuffer
	input   textinput.Model
	history []exchange
	sent    []string
	recall  int
}

type responseMsg struct {
	exchange exchange
}

func newConsoleModel(rt *runtime.Runtime, trace *traceBuffer) *consoleModel {
	ti := textinput.New()
	ti.Placeholder = `{"api": "sinvoke", "fqn": "calc.MathUtils", "method": "square", "args": [4]}`
	ti.Prompt = "> "
	ti.Width = 80
	ti.Focus()
	return &consoleModel{rt: rt, trace: trace, input: ti}
}

func (m *consoleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.sent = append(m.sent, line)
			m.recall = len(m.sent)
			m.input.SetValue("")
			return m, m.send(line)

		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.sent[m.recall])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall < len(m.sent)-1 {
				m.recall++
				m.input.SetValue(m.sent[m.recall])
				m.input.CursorEnd()
			} else {
				m.recall = len(m.sent)
				m.input.SetValue("")
			}
			return m, nil
		}

	case responseMsg:
		m.history = append(m.history, msg.exchange)
		if len(m.history) > maxExchanges {
			m.history = m.history[len(m.history)-maxExchanges:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send runs one request against the kernel.
func (m *consoleModel) send(line string) tea.Cmd {
	return func() tea.Msg {
		ex := exchange{request: line}

		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			ex.err = fmt.Errorf("request is not a JSON object: %w", err)
			return responseMsg{exchange: ex}
		}
		req, err := wire.ParseRequest(raw)
		if err != nil {
			ex.response = wire.Failure(err)
			return responseMsg{exchange: ex}
		}

		ex.response = m.rt.Kernel().Handle(context.Background(), req)
		ex.trace = m.trace.take()
		return responseMsg{exchange: ex}
	}
}

func (m *consoleModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("jsii-kernel " + runtime.Version))
	b.WriteString(" modules: ")
	b.WriteString(strings.Join(m.rt.Kernel().Registry().Names(), ", "))
	b.WriteString("\n\n")

	for _, ex := range m.history {
		b.WriteString(requestStyle.Render("> " + ex.request))
		b.WriteString("\n")
		for _, line := range ex.trace {
			b.WriteString(traceStyle.Render("  " + line))
			b.WriteString("\n")
		}
		b.WriteString(renderOutcome(ex))
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter send • ↑/↓ history • esc quit"))
	return b.String()
}

func renderOutcome(ex exchange) string {
	if ex.err != nil {
		return errorStyle.Render("Error: " + ex.err.Error())
	}
	if f := ex.response.Fault; f != nil {
		return errorStyle.Render(f.Name + ": " + f.Message)
	}
	data, err := json.Marshal(ex.response.Result)
	if err != nil {
		return errorStyle.Render("Error: " + err.Error())
	}
	return resultStyle.Render(string(data))
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	trace := &traceBuffer{}
	opts := runtime.OptionsFrom(cfg, logger, true)
	opts.TraceLogger = newTraceLogger(trace)
	opts.Trace = engine.TraceOptions{Enabled: true, MaxArgLen: cfg.Trace.MaxArgLen}
	// The screen belongs to the console.
	opts.Logger = zap.NewNop()
	engine.SetLogger(nil)
	linker.SetLogger(nil)

	rt, err := newRuntime(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()
	trace.take()

	p := tea.NewProgram(newConsoleModel(rt, trace), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
