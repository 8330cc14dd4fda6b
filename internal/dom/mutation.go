package dom

import "golang.org/x/net/html"

// MutationType discriminates mutation records.
type MutationType string

const (
	ChildList     MutationType = "childList"
	Attributes    MutationType = "attributes"
	CharacterData MutationType = "characterData"
)

// Record is a single tree change.
type Record struct {
	Type          MutationType
	Target        *html.Node
	Added         []*html.Node
	Removed       []*html.Node
	AttributeName string
	OldValue      string
}

// ObserveOptions selects which changes an observer receives.
type ObserveOptions struct {
	ChildList     bool
	Attributes    bool
	CharacterData bool
	// Subtree extends observation from the target to all its descendants.
	Subtree bool
}

// Observer receives batches of records for one target.
type Observer struct {
	doc    *Document
	target *html.Node
	opts   ObserveOptions
	fn     func([]Record)
}

// Observe registers fn for changes under target. Records produced while a
// batch is being delivered are delivered in a later batch.
func (d *Document) Observe(target *html.Node, opts ObserveOptions, fn func([]Record)) *Observer {
	o := &Observer{doc: d, target: target, opts: opts, fn: fn}
	d.observers = append(d.observers, o)
	return o
}

// Disconnect stops delivery to the observer.
func (o *Observer) Disconnect() {
	obs := o.doc.observers
	for i, cur := range obs {
		if cur == o {
			o.doc.observers = append(obs[:i:i], obs[i+1:]...)
			return
		}
	}
}

func (o *Observer) wants(r Record) bool {
	switch r.Type {
	case ChildList:
		if !o.opts.ChildList {
			return false
		}
	case Attributes:
		if !o.opts.Attributes {
			return false
		}
	case CharacterData:
		if !o.opts.CharacterData {
			return false
		}
	}
	if r.Target == o.target {
		return true
	}
	if !o.opts.Subtree {
		return false
	}
	for p := r.Target.Parent; p != nil; p = p.Parent {
		if p == o.target {
			return true
		}
	}
	return false
}

func (d *Document) queue(r Record) {
	if len(d.observers) == 0 {
		return
	}
	d.pending = append(d.pending, r)
	if d.post != nil && !d.scheduled {
		d.scheduled = true
		d.post(d.Flush)
	}
}

// TakeRecords empties the pending queue and returns its records.
func (d *Document) TakeRecords() []Record {
	out := d.pending
	d.pending = nil
	return out
}

// Flush delivers every pending record to interested observers.
func (d *Document) Flush() {
	d.scheduled = false
	records := d.TakeRecords()
	if len(records) == 0 {
		return
	}
	observers := append([]*Observer(nil), d.observers...)
	for _, o := range observers {
		var batch []Record
		for _, r := range records {
			if o.wants(r) {
				batch = append(batch, r)
			}
		}
		if len(batch) > 0 {
			o.fn(batch)
		}
	}
}

// AddedNodes counts nodes added across a batch.
func AddedNodes(batch []Record) int {
	n := 0
	for _, r := range batch {
		if r.Type == ChildList {
			n += len(r.Added)
		}
	}
	return n
}
