package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/nocodemedia/media-server/internal/engine"
)

// Segment is one timed subtitle cue
type Segment struct {
	Text    string
	StartTS float64
	EndTS   float64
}

// SubtitleStyle controls the rendered look of burned-in captions
type SubtitleStyle struct {
	FontSize   int
	StrokeSize int
	ShadowBlur int
	Width      int
	Height     int
}

// DefaultSubtitleStyle matches the look used for short-form captioned videos
func DefaultSubtitleStyle(width, height int) SubtitleStyle {
	return SubtitleStyle{
		FontSize:   120,
		StrokeSize: 5,
		ShadowBlur: 10,
		Width:      width,
		Height:     height,
	}
}

// BuildSegments groups timed captions into subtitle cues of at most wordsPer
// words. Word-at-a-time cues (wordsPer=1) give the punchy style short videos
// use.
func BuildSegments(captions []engine.Caption, wordsPer int) []Segment {
	if wordsPer < 1 {
		wordsPer = 1
	}
	var segments []Segment
	for i := 0; i < len(captions); i += wordsPer {
		end := i + wordsPer
		if end > len(captions) {
			end = len(captions)
		}
		group := captions[i:end]
		words := make([]string, 0, len(group))
		for _, c := range group {
			if text := strings.TrimSpace(c.Text); text != "" {
				words = append(words, text)
			}
		}
		if len(words) == 0 {
			continue
		}
		segments = append(segments, Segment{
			Text:    strings.Join(words, " "),
			StartTS: group[0].StartTS,
			EndTS:   group[len(group)-1].EndTS,
		})
	}
	return segments
}

// WriteASS renders segments into an ASS subtitle file at path
func WriteASS(path string, segments []Segment, style SubtitleStyle) error {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", style.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", style.Height)
	b.WriteString("WrapStyle: 0\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(&b, "Style: Default,Arial,%d,&H00FFFFFF,&H00000000,&H80000000,-1,1,%d,%d,5,40,40,40\n\n",
		style.FontSize, style.StrokeSize, style.ShadowBlur)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assTimestamp(seg.StartTS), assTimestamp(seg.EndTS), escapeASSText(seg.Text))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}
	return nil
}

// assTimestamp formats seconds as H:MM:SS.CC
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	h := centis / 360000
	m := centis / 6000 % 60
	s := centis / 100 % 60
	cs := centis % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "\n", "\\N")
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	return text
}
