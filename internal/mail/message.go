package mail

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"
	"time"
)

// Message renders e as an RFC 5322 message. With a text alternative the body
// is multipart/alternative (text first, HTML preferred); otherwise it is a
// single quoted-printable HTML part.
func Message(e *Email, now time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q", ErrInvalidAddress, e.From)
	}
	to := make([]string, 0, len(e.To))
	for _, r := range e.To {
		a, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("%w: to %q", ErrInvalidAddress, r)
		}
		to = append(to, a.String())
	}

	var body bytes.Buffer
	var contentType string
	if e.Text == "" {
		contentType = `text/html; charset="utf-8"`
		if err := writeQP(&body, e.HTML); err != nil {
			return nil, err
		}
	} else {
		mw := multipart.NewWriter(&body)
		contentType = `multipart/alternative; boundary="` + mw.Boundary() + `"`
		for _, part := range []struct{ ctype, content string }{
			{`text/plain; charset="utf-8"`, e.Text},
			{`text/html; charset="utf-8"`, e.HTML},
		} {
			w, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {part.ctype},
				"Content-Transfer-Encoding": {"quoted-printable"},
			})
			if err != nil {
				return nil, err
			}
			if err := writeQP(w, part.content); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
	}

	var msg bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&msg, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", e.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", messageID(from.Address))
	header("MIME-Version", "1.0")
	header("Content-Type", contentType)
	if e.Text == "" {
		header("Content-Transfer-Encoding", "quoted-printable")
	}

	keys := make([]string, 0, len(e.Headers))
	for k := range e.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		header(textproto.CanonicalMIMEHeaderKey(k), mime.QEncoding.Encode("utf-8", e.Headers[k]))
	}

	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func writeQP(w io.Writer, s string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(s)); err != nil {
		return err
	}
	return qp.Close()
}

func messageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndexByte(from, '@'); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}
	var b [12]byte
	_, _ = rand.Read(b[:])
	return "<" + hex.EncodeToString(b[:]) + "@" + domain + ">"
}
