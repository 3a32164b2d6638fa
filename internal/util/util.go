package util

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Throttle returns a wrapper that invokes fn at most once per limit.
// Calls arriving inside the window are dropped; the trailing call is
// rescheduled to run when the window closes.
func Throttle(fn func(), limit time.Duration) func() {
	var mu sync.Mutex
	var lastRan time.Time
	var trailing *time.Timer

	return func() {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastRan) >= limit {
			lastRan = now
			go fn()
			return
		}

		if trailing != nil {
			trailing.Stop()
		}
		wait := limit - now.Sub(lastRan)
		trailing = time.AfterFunc(wait, func() {
			mu.Lock()
			lastRan = time.Now()
			mu.Unlock()
			fn()
		})
	}
}

// Debounce returns a wrapper that delays fn until delay has passed
// without another call.
func Debounce(fn func(), delay time.Duration) func() {
	var mu sync.Mutex
	var timer *time.Timer

	return func() {
		mu.Lock()
		defer mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, fn)
	}
}

// FormatNumber renders n with thousands separators
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Initials returns up to two uppercase initials from a full name
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// Slugify converts a title into a URL-safe slug
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns a short non-cryptographic identifier, for values
// that only need local uniqueness.
func RandomID(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}
