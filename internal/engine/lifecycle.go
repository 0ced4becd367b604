package engine

// Event is a requested lifecycle transition.
type Event string

const (
	EventSave       Event = "save"
	EventSubmit     Event = "submit"
	EventCancel     Event = "cancel"
	EventAmend      Event = "amend"
	EventCreatePick Event = "create_pick"
)

// Transition applies a lifecycle event. Every event is confirmation-gated:
// the caller must have obtained an affirmative answer before invoking this,
// and passes it as confirmed. A rejected transition returns a GuardViolation
// (or, for Save, a ValidationError) and leaves the document unchanged.
func (e *Engine) Transition(event Event, confirmed bool) (Status, error) {
	from := e.doc.Status
	if !confirmed {
		return from, &GuardViolation{Event: event, From: from, Err: ErrNotConfirmed}
	}
	switch event {
	case EventSave:
		err := e.save()
		return e.doc.Status, err
	case EventSubmit:
		err := e.submit()
		return e.doc.Status, err
	case EventCancel:
		err := e.cancel()
		return e.doc.Status, err
	case EventAmend:
		err := e.amend()
		return e.doc.Status, err
	case EventCreatePick:
		err := e.createPick()
		return e.doc.Status, err
	default:
		return from, &GuardViolation{Event: event, From: from, Err: ErrUnknownEvent}
	}
}

// TransitionConfirmed asks the Confirmer before applying the event. It is a
// convenience for embedded use; HTTP callers carry the answer on the request
// and call Transition directly.
func (e *Engine) TransitionConfirmed(event Event, confirmer Confirmer, message string) (Status, error) {
	return e.Transition(event, confirmer.Confirm(message))
}

// save validates the header, persists through the Persister, and moves the
// document to Saved. Allowed from Draft and, for re-saving edits, from
// Saved. A persistence failure is non-fatal: the status does not change and
// the user may retry.
func (e *Engine) save() error {
	from := e.doc.Status
	if from != StatusDraft && from != StatusSaved {
		return &GuardViolation{Event: EventSave, From: from, Err: ErrBadTransition}
	}
	if e.doc.CustomerID == 0 {
		return validationErr(ErrCustomerRequired, "customer_id", "")
	}
	if len(e.doc.Lines) == 0 {
		return validationErr(ErrNoLines, "lines", "")
	}
	if e.doc.DeliveryDate.Before(e.doc.OrderDate) {
		return validationErr(ErrDateOrder, "delivery_date", "delivery %s before order %s",
			e.doc.DeliveryDate.Format("2006-01-02"), e.doc.OrderDate.Format("2006-01-02"))
	}
	// The saved status is part of the persisted snapshot, so flip it before
	// the write and restore it if the write fails.
	e.doc.Status = StatusSaved
	id, err := e.persister.Save(&e.doc)
	if err != nil {
		e.doc.Status = from
		return err
	}
	e.doc.ID = id
	return nil
}

func (e *Engine) submit() error {
	from := e.doc.Status
	if !e.doc.Saved() {
		return &GuardViolation{Event: EventSubmit, From: from, Err: ErrNotSaved}
	}
	if from != StatusSaved {
		return &GuardViolation{Event: EventSubmit, From: from, Err: ErrBadTransition}
	}
	e.doc.Status = StatusSubmitted
	return nil
}

func (e *Engine) cancel() error {
	from := e.doc.Status
	if !e.doc.Saved() {
		return &GuardViolation{Event: EventCancel, From: from, Err: ErrNotSaved}
	}
	if e.doc.Picked {
		return &GuardViolation{Event: EventCancel, From: from, Err: ErrAlreadyPicked}
	}
	if from != StatusSaved && from != StatusSubmitted {
		return &GuardViolation{Event: EventCancel, From: from, Err: ErrBadTransition}
	}
	e.doc.Status = StatusCancelled
	return nil
}

// amend reopens a cancelled document: back to Draft with the submitted,
// picked and cancelled flags cleared. The ledgers are left as they were.
func (e *Engine) amend() error {
	from := e.doc.Status
	if !e.doc.Saved() {
		return &GuardViolation{Event: EventAmend, From: from, Err: ErrNotSaved}
	}
	if from != StatusCancelled {
		return &GuardViolation{Event: EventAmend, From: from, Err: ErrBadTransition}
	}
	e.doc.Status = StatusDraft
	e.doc.Picked = false
	return nil
}

// createPick marks a submitted document as picked. The status value stays
// Submitted; StatusLabel presents the document as delivered from here on.
func (e *Engine) createPick() error {
	from := e.doc.Status
	if from != StatusSubmitted {
		return &GuardViolation{Event: EventCreatePick, From: from, Err: ErrBadTransition}
	}
	e.doc.Picked = true
	return nil
}
