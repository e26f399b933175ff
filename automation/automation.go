// Package automation drives the target application's UI: clicking the
// search field, typing cédulas, and pressing submit keys. The production
// backend shells out to xdotool; the noop backend logs every action for dry
// runs. All wait times come from configuration, never from constants.
package automation

import (
	"context"
	"time"
)

// Automator is the keyboard/mouse port consumed by the row processor.
// Implementations must honor interval on TypeText (delay between
// keystrokes) and support key combinators like "ctrl+a" in PressKey.
type Automator interface {
	Click(ctx context.Context, x, y int) error
	PressKey(ctx context.Context, name string) error
	TypeText(ctx context.Context, text string, interval time.Duration) error
}
