package event

import (
	"errors"
	"time"

	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

// ErrMissingStanza is returned when an event has no stanza name.
var ErrMissingStanza = errors.New("event: stanza is required")

// Wire element and attribute names.
const (
	TagEvent = "event"

	tagTime       = "time"
	tagData       = "data"
	tagSource     = "source"
	tagSourceType = "sourcetype"
	tagHost       = "host"
	tagIndex      = "index"
	tagDone       = "done"

	attrStanza   = "stanza"
	attrUnbroken = "unbroken"
)

// Event is one record, or one fragment of a record, written to the host.
//
// A complete record leaves Fragment false. A record split over several
// events sets Fragment on every piece and Final on the last one, which is
// what tells the host the record is done.
type Event struct {
	Data       string
	Time       time.Time
	Stanza     string
	Host       string
	Index      string
	Source     string
	SourceType string
	Fragment   bool
	Final      bool
}

// Done reports whether the event carries the end-of-record marker.
func (e *Event) Done() bool {
	return !e.Fragment || e.Final
}

// Encode renders e as an <event> element. Host, index, source and
// sourcetype are always present, empty when unset. A zero Time is replaced
// with the current time.
func Encode(e *Event) (*xmlcodec.Node, error) {
	if e.Stanza == "" {
		return nil, ErrMissingStanza
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	unbroken := "0"
	if e.Fragment {
		unbroken = "1"
	}

	n := xmlcodec.NewNode(TagEvent).
		SetAttr(attrStanza, e.Stanza).
		SetAttr(attrUnbroken, unbroken)
	n.AddText(tagTime, FormatTime(ts))
	n.AddText(tagData, e.Data)
	n.AddText(tagSource, e.Source)
	n.AddText(tagSourceType, e.SourceType)
	n.AddText(tagHost, e.Host)
	n.AddText(tagIndex, e.Index)
	if e.Done() {
		n.AddChild(xmlcodec.NewNode(tagDone))
	}
	return n, nil
}

// Decode reads an <event> element back into an Event. It is the inverse of
// Encode and is used by tools that consume the stream.
func Decode(n *xmlcodec.Node) (*Event, error) {
	if n == nil || n.Name != TagEvent {
		return nil, errors.New("event: not an <event> element")
	}
	stanza, ok := n.Attr(attrStanza)
	if !ok || stanza == "" {
		return nil, ErrMissingStanza
	}

	e := &Event{Stanza: stanza}
	if v, _ := n.Attr(attrUnbroken); v == "1" {
		e.Fragment = true
	}
	_, done := n.Child(tagDone)
	e.Final = e.Fragment && done

	if ts, ok := n.ChildText(tagTime); ok && ts != "" {
		t, err := ParseTime(ts)
		if err != nil {
			return nil, err
		}
		e.Time = t
	}
	e.Data, _ = n.ChildText(tagData)
	e.Source, _ = n.ChildText(tagSource)
	e.SourceType, _ = n.ChildText(tagSourceType)
	e.Host, _ = n.ChildText(tagHost)
	e.Index, _ = n.ChildText(tagIndex)
	return e, nil
}
