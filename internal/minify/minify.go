// Package minify turns a Telegram chat export (result.json) into a compact
// plain-text transcript suited to token counting.
//
// Each kept message becomes a "[sender]: text" line, or
// "[sender](-> replied_to): text" for replies. Consecutive messages from the
// same sender are merged into one block. Blocks are separated by "###", and
// a "### DATE: <date>" header is written after a long pause or once too many
// blocks have gone by without one.
package minify

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/tokcount/internal/logger"
)

const (
	// DefaultMinTimeGap is the pause, in seconds, after which a block gets
	// a date header.
	DefaultMinTimeGap int64 = 3600
	// DefaultMaxUndated is the number of header-less blocks after which a
	// date header is forced.
	DefaultMaxUndated = 100
)

var (
	ErrNoMessages   = errors.New("JSON does not contain a 'messages' array")
	ErrMissingField = errors.New("message is missing a required field")
)

// Options controls transcript layout.
type Options struct {
	MinTimeGap int64
	MaxUndated int
	// Progress receives a progress bar while messages are processed.
	Progress io.Writer
}

// DefaultOptions returns the standard layout.
func DefaultOptions() Options {
	return Options{
		MinTimeGap: DefaultMinTimeGap,
		MaxUndated: DefaultMaxUndated,
	}
}

// Stats summarises a run.
type Stats struct {
	Messages int // entries in the messages array
	Written  int // messages that produced transcript text
}

type message map[string]json.RawMessage

// Minify reads an export from r and writes the transcript to w.
func Minify(ctx context.Context, r io.Reader, w io.Writer, opts Options) (Stats, error) {
	log := logger.FromContext(ctx)

	log.Info("reading export")
	data, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, fmt.Errorf("read export: %w", err)
	}
	log.Info("parsing JSON", "bytes", len(data))
	messages, err := decodeMessages(data)
	if err != nil {
		return Stats{}, err
	}
	log.Info("processing messages", "count", len(messages))

	out := bufio.NewWriter(w)
	tw := transcriptWriter{out: out, opts: opts, senders: make(map[int64]string)}

	var bar *progress
	if opts.Progress != nil && len(messages) > 0 {
		bar = newProgress(opts.Progress, len(messages))
	}

	stats := Stats{Messages: len(messages)}
	for i, raw := range messages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		written, err := tw.add(raw)
		if err != nil {
			_ = out.Flush()
			return stats, fmt.Errorf("message %d: %w", i, err)
		}
		if written {
			stats.Written++
		}
		if bar != nil {
			bar.increment()
		}
	}
	if bar != nil {
		bar.finish()
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("write transcript: %w", err)
	}
	return stats, nil
}

func decodeMessages(data []byte) ([]json.RawMessage, error) {
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if firstByte(data) != '{' {
		return nil, ErrNoMessages
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	raw, ok := doc["messages"]
	if !ok || firstByte(raw) != '[' {
		return nil, ErrNoMessages
	}
	var messages []json.RawMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	return messages, nil
}

// transcriptWriter carries the state that spans messages.
type transcriptWriter struct {
	out  *bufio.Writer
	opts Options

	// senders maps message ids to their sender name, for reply targets.
	senders      map[int64]string
	prevFromID   string
	prevTime     int64
	undatedCount int
}

func (t *transcriptWriter) add(raw json.RawMessage) (bool, error) {
	if firstByte(raw) != '{' {
		return false, nil
	}
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}

	if id, ok := msg.intField("id"); ok {
		if from, ok := msg.stringField("from"); ok {
			t.senders[id] = from
		} else {
			delete(t.senders, id)
		}
	}
	if typ, _ := msg.stringField("type"); typ == "service" {
		return false, nil
	}

	text, err := msg.body()
	if err != nil {
		return false, err
	}
	if text == "" {
		return false, nil
	}

	sender, ok := msg.stringField("from")
	if !ok {
		sender = "unknown"
	}
	fromID, _ := msg.stringField("from_id")

	replyTo, isReply := "", false
	if id, ok := msg.intField("reply_to_message_id"); ok {
		replyTo, isReply = t.senders[id]
	}

	stamp, ok := msg.stringField("date_unixtime")
	if !ok {
		return false, fmt.Errorf("%w: date_unixtime", ErrMissingField)
	}
	unix, err := strconv.ParseInt(strings.TrimSpace(stamp), 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid date_unixtime %q", stamp)
	}
	showDate := unix-t.prevTime > t.opts.MinTimeGap
	t.prevTime = unix

	if !isReply && fromID != "" && fromID == t.prevFromID {
		if _, err := fmt.Fprintf(t.out, "%s\n", text); err != nil {
			return false, err
		}
		return true, nil
	}

	if showDate || t.undatedCount > t.opts.MaxUndated {
		t.undatedCount = 0
		date, ok := msg.stringField("date")
		if !ok {
			return false, fmt.Errorf("%w: date", ErrMissingField)
		}
		_, err = fmt.Fprintf(t.out, "### DATE: %s\n", date)
	} else {
		t.undatedCount++
		_, err = t.out.WriteString("###\n")
	}
	if err != nil {
		return false, err
	}

	if isReply {
		_, err = fmt.Fprintf(t.out, "[%s](-> %s): %s\n", sender, replyTo, text)
	} else {
		_, err = fmt.Fprintf(t.out, "[%s]: %s\n", sender, text)
	}
	if err != nil {
		return false, err
	}
	t.prevFromID = fromID
	return true, nil
}

// body renders the message text, prefixing or substituting media markers.
func (m message) body() (string, error) {
	text := m.text()
	if _, ok := m["photo"]; ok {
		text = "*photo* " + text
	}
	if text != "" {
		return text, nil
	}

	switch media, _ := m.stringField("media_type"); media {
	case "sticker":
		emoji, ok := m.stringField("sticker_emoji")
		if !ok {
			return "", fmt.Errorf("%w: sticker_emoji", ErrMissingField)
		}
		return "*sticker " + emoji + "*", nil
	case "video_file":
		return "*video*", nil
	case "animation":
		return "*gif*", nil
	}
	return "", nil
}

// text flattens "text", which is either a string or a list of strings and
// entity objects carrying their own "text".
func (m message) text() string {
	raw, ok := m["text"]
	if !ok {
		return ""
	}
	switch firstByte(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		var b strings.Builder
		for _, part := range parts {
			switch firstByte(part) {
			case '"':
				var s string
				if json.Unmarshal(part, &s) == nil {
					b.WriteString(s)
				}
			case '{':
				var entity message
				if json.Unmarshal(part, &entity) == nil {
					if s, ok := entity.stringField("text"); ok {
						b.WriteString(s)
					}
				}
			}
		}
		return b.String()
	}
	return ""
}

func (m message) stringField(key string) (string, bool) {
	raw, ok := m[key]
	if !ok || firstByte(raw) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (m message) intField(key string) (int64, bool) {
	raw, ok := m[key]
	if !ok {
		return 0, false
	}
	c := firstByte(raw)
	if c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
