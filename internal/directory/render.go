package directory

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/morebots/internal/database"
)

// Reputation glyphs, best first.
const (
	GlyphTop     = "🌟"
	GlyphHigh    = "⭐"
	GlyphMiddle  = "✨"
	GlyphLow     = "🔸"
	GlyphBottom  = "🔹"
	GlyphUnknown = "❔"

	NewMarker = "🆕"
)

// Glyph returns the tier glyph for a reputation score. Scores below the
// lowest threshold share the bottom tier.
func Glyph(score sql.NullFloat64) string {
	if !score.Valid {
		return GlyphUnknown
	}
	switch s := score.Float64; {
	case s >= 4.5:
		return GlyphTop
	case s >= 3.5:
		return GlyphHigh
	case s >= 2.5:
		return GlyphMiddle
	case s >= 1.5:
		return GlyphLow
	default:
		return GlyphBottom
	}
}

// SortByReputation orders entries by ascending score with unrated entries
// last; ties are broken by username.
func SortByReputation(entries []*database.BotEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].ReputationScore, entries[j].ReputationScore
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid && a.Float64 != b.Float64 {
			return a.Float64 < b.Float64
		}
		return strings.ToLower(entries[i].Username) < strings.ToLower(entries[j].Username)
	})
}

// IsNew reports whether entry was created less than window before now.
func IsNew(entry *database.BotEntry, now time.Time, window time.Duration) bool {
	return window > 0 && now.Sub(entry.CreatedAt) < window
}

// RenderList formats the visible entries, one per line, under header. It
// returns the empty message when no visible entry exists.
func RenderList(entries []*database.BotEntry, now time.Time, window time.Duration, header, empty string) string {
	visible := make([]*database.BotEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsVisible {
			visible = append(visible, e)
		}
	}
	if len(visible) == 0 {
		return empty
	}
	SortByReputation(visible)

	var b strings.Builder
	b.WriteString(header)
	for _, e := range visible {
		b.WriteString("\n")
		b.WriteString(RenderLine(e, now, window))
	}
	return b.String()
}

// RenderLine formats a single entry.
func RenderLine(entry *database.BotEntry, now time.Time, window time.Duration) string {
	line := fmt.Sprintf("%s @%s", Glyph(entry.ReputationScore), entry.Username)
	if IsNew(entry, now, window) {
		line += " " + NewMarker
	}
	return line
}

// FormatAmount renders an amount given in the smallest currency unit in the
// display unit, trimming trailing zeros.
func FormatAmount(amount int64, decimals int) string {
	if decimals <= 0 {
		return strconv.FormatInt(amount, 10)
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole, frac := digits[:len(digits)-decimals], strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		return sign + whole
	}
	return sign + whole + "." + frac
}

// ToSmallestUnit converts a display amount to the smallest unit, rounding up
// so a request never asks for less than the value.
func ToSmallestUnit(amount float64, decimals int) int64 {
	scaled := amount * math.Pow10(decimals)
	// Absorb float noise such as 100.00000000001 before rounding up.
	return int64(math.Ceil(scaled - 1e-9))
}
