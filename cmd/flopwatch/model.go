package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/easwar16/Golden-Flop-sub000/sdk"
)

type viewState int

const (
	stateConnecting viewState = iota
	stateLobby
	stateTable
)

const maxLogLines = 200

type model struct {
	serverURL string
	name      string
	jumpTable string

	client *sdk.Client
	state  viewState
	err    error

	tables []sdk.Table
	cursor int
	notice string

	tableID  string
	table    *sdk.TableState
	names    map[string]string
	eventLog []string
	logView  viewport.Model

	width    int
	height   int
	quitting bool
}

type connectedMsg struct{ client *sdk.Client }

type connectErrMsg struct{ err error }

type eventMsg struct{ msg *sdk.Message }

type disconnectedMsg struct{ err error }

type watchedMsg struct{ state *sdk.TableState }

type tablesMsg struct{ tables []sdk.Table }

type noticeMsg struct{ text string }

func newModel(serverURL, name, jumpTable string) *model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	return &model{
		serverURL: serverURL,
		name:      name,
		jumpTable: jumpTable,
		state:     stateConnecting,
		names:     map[string]string{},
		logView:   vp,
	}
}

func (m *model) Init() tea.Cmd {
	return connect(m.serverURL, m.name)
}

func connect(serverURL, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		id := sdk.Identity{PlayerID: "watch_" + uuid.NewString()[:8], Name: name}
		client, err := sdk.Dial(ctx, serverURL, id, log.New(io.Discard))
		if err != nil {
			return connectErrMsg{err}
		}
		return connectedMsg{client}
	}
}

// waitEvent returns a command that blocks on the next server push. Update
// re-arms it after delivering each eventMsg so the stream never stalls.
func waitEvent(c *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.Events()
		if !ok {
			return disconnectedMsg{c.Err()}
		}
		return eventMsg{msg}
	}
}

func watchTable(c *sdk.Client, tableID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		state, err := c.Watch(ctx, tableID)
		if err != nil {
			return noticeMsg{err.Error()}
		}
		return watchedMsg{state}
	}
}

func refreshTables(c *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tables, err := c.Tables(ctx)
		if err != nil {
			return noticeMsg{err.Error()}
		}
		return tablesMsg{tables}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case connectedMsg:
		m.client = msg.client
		if m.jumpTable != "" {
			m.tableID = m.jumpTable
			return m, tea.Batch(waitEvent(m.client), watchTable(m.client, m.jumpTable))
		}
		m.state = stateLobby
		return m, waitEvent(m.client)

	case connectErrMsg:
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit

	case disconnectedMsg:
		if msg.err != nil && !errors.Is(msg.err, sdk.ErrClosed) {
			m.err = fmt.Errorf("connection lost: %w", msg.err)
		}
		m.quitting = true
		return m, tea.Quit

	case eventMsg:
		m.consume(msg.msg)
		return m, waitEvent(m.client)

	case watchedMsg:
		m.state = stateTable
		m.tableID = msg.state.TableID
		m.table = msg.state
		m.notice = ""
		m.eventLog = nil
		m.logView.SetContent("")
		return m, nil

	case tablesMsg:
		m.tables = msg.tables
		m.clampCursor()
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		if m.state == stateConnecting {
			m.state = stateLobby
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)
	}

	switch m.state {
	case stateLobby:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.tables)-1 {
				m.cursor++
			}
		case "enter":
			if m.client != nil && m.cursor < len(m.tables) {
				return m, watchTable(m.client, m.tables[m.cursor].ID)
			}
		case "r":
			if m.client != nil {
				return m, refreshTables(m.client)
			}
		}

	case stateTable:
		switch msg.String() {
		case "esc", "backspace":
			m.state = stateLobby
			m.notice = ""
		case "up", "k":
			m.logView.LineUp(1)
		case "down", "j":
			m.logView.LineDown(1)
		case "pgup", "b":
			m.logView.HalfViewUp()
		case "pgdown", "f":
			m.logView.HalfViewDown()
		case "home", "g":
			m.logView.GotoTop()
		case "end", "G":
			m.logView.GotoBottom()
		}
	}
	return m, nil
}

// consume folds one server push into the display state. Watching is
// read-only, so only broadcasts and snapshots ever arrive here.
func (m *model) consume(raw *sdk.Message) {
	ev, err := sdk.DecodeEvent(raw)
	if err != nil {
		return
	}

	switch ev := ev.(type) {
	case *sdk.TablesList:
		m.tables = ev.Tables
		m.clampCursor()

	case *sdk.TableState:
		if ev.TableID == m.tableID {
			m.table = ev
		}

	case *sdk.SeatReserved:
		if ev.TableID == m.tableID {
			m.remember(ev.PlayerID, ev.Name)
			m.logf("seat %d held for %s", ev.Seat, m.display(ev.PlayerID))
		}

	case *sdk.SeatReleased:
		if ev.TableID == m.tableID {
			m.logf("seat %d opened up", ev.Seat)
		}

	case *sdk.PlayerJoined:
		if ev.TableID == m.tableID {
			m.remember(ev.PlayerID, ev.Name)
			m.logf("%s sits down in seat %d with %d chips", ev.Name, ev.Seat, ev.Chips)
		}

	case *sdk.PlayerLeft:
		if ev.TableID == m.tableID {
			m.remember(ev.PlayerID, ev.Name)
			m.logf("%s leaves seat %d", ev.Name, ev.Seat)
		}

	case *sdk.PlayerKicked:
		if ev.TableID == m.tableID {
			m.logf("%s removed from seat %d: %s", m.display(ev.PlayerID), ev.Seat, ev.Reason)
		}

	case *sdk.GameStarted:
		if ev.TableID == m.tableID {
			m.logf("hand %s dealt to %d players, button on seat %d", ev.HandID, ev.Players, ev.DealerSeat)
		}

	case *sdk.HandResult:
		if ev.TableID == m.tableID {
			m.logResult(ev)
		}

	case *sdk.ErrorEvent:
		if ev.TableID == "" || ev.TableID == m.tableID {
			m.notice = ev.Message
		}
	}
}

func (m *model) logResult(hr *sdk.HandResult) {
	for id, name := range hr.PlayerNames {
		m.remember(id, name)
	}
	if len(hr.Board) > 0 {
		m.logf("board %s", strings.Join(hr.Board, " "))
	}
	for _, sh := range hr.Showdown {
		m.logf("%s shows %s: %s", m.display(sh.PlayerID), strings.Join(sh.HoleCards, " "), sh.HandName)
	}
	for _, w := range hr.Winners {
		if hr.LastStanding {
			m.logf("%s takes %d uncontested", m.display(w.PlayerID), w.Amount)
		} else {
			m.logf("%s wins %d with %s", m.display(w.PlayerID), w.Amount, w.HandName)
		}
	}
	if hr.Rake > 0 {
		m.logf("rake %d", hr.Rake)
	}
}

func (m *model) logf(format string, args ...any) {
	line := time.Now().Format("15:04:05") + "  " + fmt.Sprintf(format, args...)
	m.eventLog = append(m.eventLog, line)
	if len(m.eventLog) > maxLogLines {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogLines:]
	}
	m.logView.SetContent(strings.Join(m.eventLog, "\n"))
	m.logView.GotoBottom()
}

func (m *model) remember(playerID, name string) {
	if playerID != "" && name != "" {
		m.names[playerID] = name
	}
}

func (m *model) display(playerID string) string {
	if name, ok := m.names[playerID]; ok {
		return name
	}
	return playerID
}

func (m *model) clampCursor() {
	if m.cursor >= len(m.tables) {
		m.cursor = len(m.tables) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
