// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package openvpn

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// ErrInvalidStatus is returned when input is not an OpenVPN status report.
var ErrInvalidStatus = errors.New("not an openvpn status report")

// Column names shared by all status versions.
const (
	colCommonName     = "Common Name"
	colRealAddress    = "Real Address"
	colVirtualAddress = "Virtual Address"
	colVirtualIPv6    = "Virtual IPv6 Address"
	colBytesReceived  = "Bytes Received"
	colBytesSent      = "Bytes Sent"
	colConnectedSince = "Connected Since"
	colConnectedUnix  = "Connected Since (time_t)"
	colClientID       = "Client ID"
	colLastRef        = "Last Ref"
	colLastRefUnix    = "Last Ref (time_t)"
)

// Timestamp layouts used by OpenVPN 2.x (ctime) and 2.5+ (ISO-ish).
var statusTimeLayouts = []string{
	"Mon Jan _2 15:04:05 2006",
	"2006-01-02 15:04:05",
}

type sessionKey struct {
	cn, real string
}

type statusParser struct {
	loc      *time.Location
	headers  map[string]map[string]int
	order    []sessionKey
	sessions map[sessionKey]*vpn.Session
	updated  time.Time
	v1       string // current section for status-version 1
	seen     bool
}

// ParseStatus parses a status report of any version. Timestamps without a
// time_t column are interpreted in loc (time.Local when nil).
func ParseStatus(r io.Reader, loc *time.Location) (*vpn.Statistics, error) {
	if loc == nil {
		loc = time.Local
	}

	br := bufio.NewReader(r)
	delim, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	p := &statusParser{
		loc:      loc,
		headers:  make(map[string]map[string]int),
		sessions: make(map[sessionKey]*vpn.Session),
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read status: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		if done := p.record(rec); done {
			break
		}
	}

	if !p.seen {
		return nil, ErrInvalidStatus
	}
	return p.result(), nil
}

// sniffDelimiter picks tab for status-version 3 and comma otherwise.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, ErrInvalidStatus
		}
		return 0, err
	}

	buf, _ := br.Peek(br.Buffered())
	line := string(buf)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Contains(line, "\t") {
		return '\t', nil
	}
	return ',', nil
}

// record handles one row; it returns true at END.
func (p *statusParser) record(rec []string) bool {
	tag := strings.TrimSpace(rec[0])
	switch tag {
	case "END":
		return true
	case "OpenVPN CLIENT LIST":
		p.seen = true
		p.v1 = "CLIENT_LIST"
		return false
	case "ROUTING TABLE":
		p.v1 = "ROUTING_TABLE"
		return false
	case "GLOBAL STATS":
		p.v1 = ""
		return false
	case "TITLE":
		p.seen = true
		return false
	case "TIME":
		p.seen = true
		if len(rec) >= 3 {
			p.updated = parseUnix(rec[2])
		}
		return false
	case "Updated":
		if len(rec) >= 2 {
			p.updated = p.parseTime(rec[1])
		}
		return false
	case "HEADER":
		if len(rec) >= 2 {
			p.setHeader(rec[1], rec[2:])
		}
		return false
	case "CLIENT_LIST":
		p.seen = true
		p.clientRow(rec[1:])
		return false
	case "ROUTING_TABLE":
		p.routingRow(rec[1:])
		return false
	}

	// status-version 1: header rows start with a column name, data rows
	// belong to the current section.
	switch p.v1 {
	case "CLIENT_LIST":
		if tag == colCommonName {
			p.setHeader("CLIENT_LIST", rec)
			return false
		}
		p.clientRow(rec)
	case "ROUTING_TABLE":
		if tag == colVirtualAddress {
			p.setHeader("ROUTING_TABLE", rec)
			return false
		}
		p.routingRow(rec)
	}
	return false
}

func (p *statusParser) setHeader(section string, cols []string) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[strings.TrimSpace(c)] = i
	}
	p.headers[section] = idx
}

func (p *statusParser) field(section string, row []string, col string) string {
	idx, ok := p.headers[section][col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (p *statusParser) clientRow(row []string) {
	if _, ok := p.headers["CLIENT_LIST"]; !ok {
		return
	}
	f := func(col string) string { return p.field("CLIENT_LIST", row, col) }

	key := sessionKey{cn: f(colCommonName), real: f(colRealAddress)}
	if key.cn == "" {
		return
	}

	s := &vpn.Session{
		Label:         key.cn,
		ClientID:      f(colClientID),
		Endpoint:      key.real,
		BytesReceived: parseInt(f(colBytesReceived)),
		BytesSent:     parseInt(f(colBytesSent)),
	}
	if ts := parseUnix(f(colConnectedUnix)); !ts.IsZero() {
		s.ConnectedSince = ts
	} else {
		s.ConnectedSince = p.parseTime(f(colConnectedSince))
	}
	for _, a := range []string{f(colVirtualAddress), f(colVirtualIPv6)} {
		s.VirtualAddresses = appendUnique(s.VirtualAddresses, a)
	}

	if _, exists := p.sessions[key]; !exists {
		p.order = append(p.order, key)
	}
	p.sessions[key] = s
}

func (p *statusParser) routingRow(row []string) {
	if _, ok := p.headers["ROUTING_TABLE"]; !ok {
		return
	}
	f := func(col string) string { return p.field("ROUTING_TABLE", row, col) }

	s, ok := p.sessions[sessionKey{cn: f(colCommonName), real: f(colRealAddress)}]
	if !ok {
		return
	}

	// Routes learned from packets carry a trailing "C" in some versions.
	addr := strings.TrimSuffix(f(colVirtualAddress), "C")
	s.VirtualAddresses = appendUnique(s.VirtualAddresses, addr)

	ref := parseUnix(f(colLastRefUnix))
	if ref.IsZero() {
		ref = p.parseTime(f(colLastRef))
	}
	if ref.After(s.LastActive) {
		s.LastActive = ref
	}
}

func (p *statusParser) result() *vpn.Statistics {
	out := &vpn.Statistics{
		Sessions:  make([]vpn.Session, 0, len(p.order)),
		UpdatedAt: p.updated,
	}
	for _, k := range p.order {
		s := p.sessions[k]
		if s.LastActive.IsZero() {
			s.LastActive = s.ConnectedSince
		}
		out.Sessions = append(out.Sessions, *s)
	}
	return out
}

func (p *statusParser) parseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range statusTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, p.loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseUnix(v string) time.Time {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

func parseInt(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
