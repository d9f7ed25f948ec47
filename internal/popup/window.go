// Package popup runs the out-of-band login: a secondary browser window
// signs in with the identity provider and the result is relayed back to
// this process over a loopback HTTP channel.
package popup

import "context"

// Geometry places the login window on screen.
type Geometry struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// DefaultScreen is the area login windows are centered on when the
// display size is not configured.
var DefaultScreen = Geometry{Width: 1920, Height: 1080}

// Centered returns a width x height geometry centered on parent.
func Centered(parent Geometry, width, height int) Geometry {
	return Geometry{
		Width:  width,
		Height: height,
		Left:   parent.Left + (parent.Width-width)/2,
		Top:    parent.Top + (parent.Height-height)/2,
	}
}

// Window is a secondary browsing context.
type Window interface {
	Navigate(ctx context.Context, url string) error
	// Closed reports whether the user (or anything else) closed the window.
	Closed() bool
	Close() error
}

// Opener creates login windows. A failure to open is reported as a
// blocked popup.
type Opener interface {
	Open(ctx context.Context, g Geometry) (Window, error)
}
