package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/easwar16/Golden-Flop-sub000/sdk"
)

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.state {
	case stateConnecting:
		return fmt.Sprintf("\n  Connecting to %s ...\n", m.serverURL)
	case stateLobby:
		return m.lobbyView()
	default:
		return m.tableView()
	}
}

func (m *model) lobbyView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" flopwatch · tables "))
	b.WriteString("\n\n")

	if len(m.tables) == 0 {
		b.WriteString(hintStyle.Render("  no tables yet, waiting for the lobby"))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("   %-24s %-11s %-6s %-10s %s",
			"TABLE", "STAKES", "SEATS", "PHASE", "FLAGS")))
		b.WriteString("\n")

		for i, t := range m.tables {
			name := t.Name
			if name == "" {
				name = t.ID
			}
			seats := fmt.Sprintf("%d/%d", t.Seated, t.MaxPlayers)
			stakes := fmt.Sprintf("%d/%d", t.SmallBlind, t.BigBlind)
			row := fmt.Sprintf("%-24s %-11s %-6s %-10s %s", name, stakes, seats, t.Phase, tableFlags(t))

			if i == m.cursor {
				b.WriteString(selectedStyle.Render(" ▸ " + row))
			} else {
				b.WriteString("   " + row)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render("  " + m.notice))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("  ↑/↓ select · enter watch · r refresh · q quit"))
	return b.String()
}

func (m *model) tableView() string {
	head := m.renderTableHeader()
	hints := hintStyle.Render("  esc lobby · ↑/↓ scroll log · q quit")

	paneHeight := m.height - lipgloss.Height(head) - 3
	if paneHeight < 1 {
		paneHeight = 1
	}

	seatsWidth := 46
	if m.width-seatsWidth < 30 {
		seatsWidth = m.width / 2
	}
	if seatsWidth < 1 {
		seatsWidth = 1
	}
	logWidth := m.width - seatsWidth - 4
	if logWidth < 1 {
		logWidth = 1
	}

	m.logView.Width = logWidth
	m.logView.Height = paneHeight

	seatsPane := paneStyle.Width(seatsWidth).Height(paneHeight).Render(m.renderSeats())
	logPane := paneStyle.Width(logWidth).Height(paneHeight).Render(m.logView.View())

	middle := lipgloss.JoinHorizontal(lipgloss.Top, seatsPane, logPane)
	return lipgloss.JoinVertical(lipgloss.Left, head, middle, hints)
}

func (m *model) renderTableHeader() string {
	name := m.tableID
	for _, t := range m.tables {
		if t.ID == m.tableID && t.Name != "" {
			name = t.Name
			break
		}
	}

	lines := []string{titleStyle.Render(" flopwatch · " + name + " ")}

	if m.table != nil {
		info := []string{
			fmt.Sprintf("blinds %d/%d", m.table.SmallBlind, m.table.BigBlind),
			m.table.Phase,
		}
		if m.table.CountdownSeconds > 0 {
			info = append(info, fmt.Sprintf("starting in %ds", m.table.CountdownSeconds))
		}
		if board := m.table.Board(); len(board) > 0 {
			info = append(info, "board "+formatCards(board))
		}
		pot := fmt.Sprintf("pot %d", m.table.Pot)
		if n := len(m.table.SidePots); n > 1 {
			pot += fmt.Sprintf(" across %d pots", n)
		}
		info = append(info, potStyle.Render(pot))
		if m.table.CurrentBet > 0 {
			info = append(info, fmt.Sprintf("bet %d", m.table.CurrentBet))
		}
		lines = append(lines, "  "+strings.Join(info, "   "))
	}

	if m.notice != "" {
		lines = append(lines, noticeStyle.Render("  "+m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderSeats() string {
	if m.table == nil {
		return hintStyle.Render("waiting for first snapshot")
	}

	reserved := map[int]bool{}
	for _, s := range m.table.ReservedSeats {
		reserved[s] = true
	}

	var rows []string
	for i, seat := range m.table.Seats {
		if seat == nil {
			if reserved[i] {
				rows = append(rows, hintStyle.Render(fmt.Sprintf("   %d    reserved", i)))
			} else {
				rows = append(rows, hintStyle.Render(fmt.Sprintf("   %d    ·", i)))
			}
			continue
		}
		rows = append(rows, m.renderSeat(seat))
	}
	return strings.Join(rows, "\n")
}

func (m *model) renderSeat(seat *sdk.Seat) string {
	active := seat.SeatIndex == m.table.ActiveSeat

	marker := "  "
	if active {
		marker = " ▸"
	}
	badge := "  "
	switch {
	case seat.Dealer:
		badge = "D "
	case seat.SmallBlind:
		badge = "sb"
	case seat.BigBlind:
		badge = "bb"
	}

	base := fmt.Sprintf("%s %d %s %-12s %7d", marker, seat.SeatIndex, badge, seat.Name, seat.Chips)
	switch {
	case seat.Folded:
		base = foldedStyle.Render(base + "  folded")
	case active:
		base = activeStyle.Render(base)
	}

	var extra strings.Builder
	if seat.CurrentBet > 0 {
		extra.WriteString(fmt.Sprintf("  bet %d", seat.CurrentBet))
	}
	if seat.AllIn {
		extra.WriteString("  all-in")
	}
	if !seat.Connected {
		extra.WriteString("  away")
	}
	if len(seat.HoleCards) > 0 {
		extra.WriteString("  " + formatCards(seat.HoleCards))
	}
	return base + extra.String()
}

func formatCards(cards []string) string {
	if len(cards) == 0 {
		return ""
	}

	var formatted []string
	for _, card := range cards {
		style := blackCardStyle
		if n := len(card); n > 0 && (card[n-1] == 'h' || card[n-1] == 'd') {
			style = redCardStyle
		}
		formatted = append(formatted, style.Render(card))
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

func tableFlags(t sdk.Table) string {
	var flags []string
	if t.Vault {
		flags = append(flags, "vault")
	}
	if t.Premium {
		flags = append(flags, "premium")
	}
	if t.Token != "" {
		flags = append(flags, t.Token)
	}
	return strings.Join(flags, ",")
}
