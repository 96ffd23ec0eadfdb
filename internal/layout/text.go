package layout

import (
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/changeflow/internal/change"
)

// Motion is a cursor movement.
type Motion uint8

const (
	MoveLeft Motion = iota
	MoveRight
	MoveUp
	MoveDown
	MoveLineStart
	MoveLineEnd
	MoveDocumentStart
	MoveDocumentEnd
)

func normalize(s string) string { return norm.NFC.String(s) }

func graphemeCount(s string) int { return uniseg.GraphemeClusterCount(s) }

// clusters splits s into grapheme clusters.
func clusters(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// byteOffset converts a grapheme offset into a byte offset in s.
func byteOffset(s string, graphemes int) int {
	if graphemes <= 0 {
		return 0
	}
	g := uniseg.NewGraphemes(s)
	i := 0
	for g.Next() {
		if i == graphemes {
			start, _ := g.Positions()
			return start
		}
		i++
	}
	return len(s)
}

func isNewline(cluster string) bool {
	return cluster == "\n" || cluster == "\r\n" || cluster == "\r"
}

// lineStarts returns the grapheme offset at which each line begins.
func lineStarts(cs []string) []int {
	starts := []int{0}
	for i, c := range cs {
		if isNewline(c) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf returns the line index containing offset.
func lineOf(starts []int, offset int) int {
	line := 0
	for i, st := range starts {
		if st <= offset {
			line = i
		}
	}
	return line
}

// lineEnd returns the offset just before the newline ending line, or the
// text length for the last line.
func lineEnd(starts []int, total, line int) int {
	if line+1 < len(starts) {
		return starts[line+1] - 1
	}
	return total
}

func (s *State) editable(ref change.NodeRef) *Node {
	n := s.Node(ref)
	if n == nil || !n.Editable {
		return nil
	}
	return n
}

func (s *State) touchCursor(ref change.NodeRef) {
	s.Cursor.Node = ref
	s.Cursor.Active = true
	s.Cursor.Visible = true
}

func selectionRange(n *Node) (int, int) {
	return min(n.Cursor, n.Anchor), max(n.Cursor, n.Anchor)
}

// replaceRange replaces graphemes [from, to) of n.Text with text and puts the
// cursor after the insertion.
func replaceRange(n *Node, from, to int, text string) {
	bf := byteOffset(n.Text, from)
	bt := byteOffset(n.Text, to)
	head := n.Text[:bf] + text
	n.Text = normalize(head + n.Text[bt:])
	n.Cursor = graphemeCount(normalize(head))
	n.Anchor = n.Cursor
}

// InsertText types text at the cursor of ref, replacing any selection. The
// result is NFC-normalised.
func (s *State) InsertText(ref change.NodeRef, text string) bool {
	n := s.editable(ref)
	if n == nil {
		return false
	}
	from, to := selectionRange(n)
	replaceRange(n, from, to, normalize(text))
	s.touchCursor(ref)
	return true
}

// DeleteBackward removes the selection, or the grapheme before the cursor.
// It reports whether the text changed.
func (s *State) DeleteBackward(ref change.NodeRef) bool {
	n := s.editable(ref)
	if n == nil {
		return false
	}
	s.touchCursor(ref)
	from, to := selectionRange(n)
	if from == to {
		if from == 0 {
			return false
		}
		from--
	}
	replaceRange(n, from, to, "")
	return true
}

// DeleteForward removes the selection, or the grapheme after the cursor.
// It reports whether the text changed.
func (s *State) DeleteForward(ref change.NodeRef) bool {
	n := s.editable(ref)
	if n == nil {
		return false
	}
	s.touchCursor(ref)
	from, to := selectionRange(n)
	if from == to {
		if to >= graphemeCount(n.Text) {
			return false
		}
		to++
	}
	replaceRange(n, from, to, "")
	return true
}

// MoveCursorTo places the cursor at offset, clamped to the text, and clears
// the selection.
func (s *State) MoveCursorTo(ref change.NodeRef, offset int) bool {
	n := s.editable(ref)
	if n == nil {
		return false
	}
	n.Cursor = max(0, min(offset, graphemeCount(n.Text)))
	n.Anchor = n.Cursor
	s.touchCursor(ref)
	return true
}

// SetSelection selects [anchor, focus) with the cursor at focus.
func (s *State) SetSelection(ref change.NodeRef, anchor, focus int) bool {
	n := s.editable(ref)
	if n == nil {
		return false
	}
	total := graphemeCount(n.Text)
	n.Anchor = max(0, min(anchor, total))
	n.Cursor = max(0, min(focus, total))
	s.touchCursor(ref)
	return true
}

// MoveCursor applies motion to the cursor of ref. With extend the anchor
// stays put and the selection grows; without it the selection collapses.
func (s *State) MoveCursor(ref change.NodeRef, m Motion, extend bool) bool {
	n := s.editable(ref)
	if n == nil {
		return false
	}
	cs := clusters(n.Text)
	total := len(cs)
	starts := lineStarts(cs)
	cur := n.Cursor

	switch m {
	case MoveLeft:
		if !extend && n.HasSelection() {
			cur, _ = selectionRange(n)
		} else if cur > 0 {
			cur--
		}
	case MoveRight:
		if !extend && n.HasSelection() {
			_, cur = selectionRange(n)
		} else if cur < total {
			cur++
		}
	case MoveUp, MoveDown:
		line := lineOf(starts, cur)
		col := cur - starts[line]
		target := line - 1
		if m == MoveDown {
			target = line + 1
		}
		switch {
		case target < 0:
			cur = 0
		case target >= len(starts):
			cur = total
		default:
			cur = min(starts[target]+col, lineEnd(starts, total, target))
		}
	case MoveLineStart:
		cur = starts[lineOf(starts, cur)]
	case MoveLineEnd:
		cur = lineEnd(starts, total, lineOf(starts, cur))
	case MoveDocumentStart:
		cur = 0
	case MoveDocumentEnd:
		cur = total
	}

	n.Cursor = cur
	if !extend {
		n.Anchor = cur
	}
	s.touchCursor(ref)
	return true
}

// SelectedText returns the selected graphemes of ref.
func (s *State) SelectedText(ref change.NodeRef) string {
	n := s.Node(ref)
	if n == nil {
		return ""
	}
	from, to := selectionRange(n)
	return n.Text[byteOffset(n.Text, from):byteOffset(n.Text, to)]
}

// ClearSelections collapses every selection onto its cursor.
func (s *State) ClearSelections() int {
	cleared := 0
	for _, d := range s.doms {
		for _, n := range d.nodes {
			if n.HasSelection() {
				n.Anchor = n.Cursor
				cleared++
			}
		}
	}
	return cleared
}

// SetCursorVisible shows or hides the blinking cursor.
func (s *State) SetCursorVisible(v bool) { s.Cursor.Visible = v }

// ResetCursorBlink makes the cursor visible and restarts its blink phase.
func (s *State) ResetCursorBlink() {
	s.Cursor.Visible = true
	s.Cursor.BlinkResets++
}
