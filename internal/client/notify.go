package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/VinMeld/campus-chat/internal/transcript"
)

// writerNotifier prints transient notifications, one per line.
type writerNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *writerNotifier) Notify(title, description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", title, description)
}

// streamPrinter writes the assistant's tail message as it is revealed.
type streamPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	id       string
	printed  int
	finished bool
}

func (p *streamPrinter) Update(msgs []transcript.Message) {
	if len(msgs) == 0 {
		return
	}
	tail := msgs[len(msgs)-1]
	if tail.Author != transcript.Assistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tail.ID != p.id {
		p.id, p.printed, p.finished = tail.ID, 0, false
		fmt.Fprint(p.w, "assistant> ")
	}
	if p.finished {
		return
	}
	runes := []rune(tail.Text)
	if len(runes) > p.printed {
		fmt.Fprint(p.w, string(runes[p.printed:]))
		p.printed = len(runes)
	}
	if tail.State == transcript.Complete && p.printed == len(runes) {
		fmt.Fprintln(p.w)
		p.finished = true
	}
}
