package devtools

import (
	"context"
	"time"
)

// PlaybackFrame is the full input after one simulated keystroke.
type PlaybackFrame struct {
	After time.Duration
	Text  string
}

// PlaybackFrames types text one rune at a time, step apart.
func (m *Manager) PlaybackFrames(text string, step time.Duration) []PlaybackFrame {
	runes := []rune(text)
	frames := make([]PlaybackFrame, 0, len(runes))
	for i := range runes {
		after := step
		if i == 0 {
			after = 0
		}
		frames = append(frames, PlaybackFrame{After: after, Text: string(runes[:i+1])})
	}
	return frames
}

// Play feeds frames to target through UpdateInput.
func Play(ctx context.Context, target Target, frames []PlaybackFrame) error {
	for _, f := range frames {
		if f.After > 0 {
			t := time.NewTimer(f.After)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		target.UpdateInput(f.Text)
	}
	return nil
}
