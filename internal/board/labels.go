package board

import (
	"slices"
	"strings"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// DefaultLabelColor is used when a label is created without a color.
const DefaultLabelColor = "gray"

// AddLabel registers a board label. Names are unique, case-insensitively.
func (b *Board) AddLabel(name, color string) (models.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Label{}, invalid("add label", "name", "must not be empty")
	}
	if color == "" {
		color = DefaultLabelColor
	}

	var out models.Label
	err := b.mutate(func(now time.Time) ([]Event, error) {
		for _, l := range b.labels {
			if strings.EqualFold(l.Name, name) {
				return nil, invalid("add label", "name", "label "+name+" already exists")
			}
		}
		out = models.Label{ID: b.newID(), Name: name, Color: color}
		b.labels = append(b.labels, out)
		return []Event{{Type: EventLabelsChanged}}, nil
	})
	return out, err
}

// Labels returns the board's labels in creation order.
func (b *Board) Labels() []models.Label {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.labels)
}

// Label finds a label by id or, failing that, by case-insensitive name.
func (b *Board) Label(ref string) (models.Label, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.labels {
		if l.ID == ref {
			return l, nil
		}
	}
	for _, l := range b.labels {
		if strings.EqualFold(l.Name, ref) {
			return l, nil
		}
	}
	return models.Label{}, notFound("get label", ErrLabelNotFound, ref)
}

// DeleteLabel removes a label and strips it from every card carrying it.
// Each affected card records a Labels update entry.
func (b *Board) DeleteLabel(id string) ([]string, error) {
	var affected []string
	err := b.mutate(func(now time.Time) ([]Event, error) {
		i := slices.IndexFunc(b.labels, func(l models.Label) bool { return l.ID == id })
		if i < 0 {
			return nil, notFound("delete label", ErrLabelNotFound, id)
		}
		b.labels = slices.Delete(b.labels, i, i+1)

		events := []Event{{Type: EventLabelsChanged}}
		rec := b.recorder(now)
		for _, col := range b.columns {
			for idx, card := range col.Cards {
				if !card.HasLabel(id) {
					continue
				}
				replaceCard(col, idx, func(card *models.Card) {
					old := serializeList(card.Labels)
					card.Labels = nonEmpty(slices.DeleteFunc(card.Labels, func(l string) bool { return l == id }))
					card.UpdatedAt = now
					card.AuditHistory = append(card.AuditHistory, rec.updated(FieldLabels, old, serializeList(card.Labels), col.ID))
				})
				affected = append(affected, card.ID)
				events = append(events, Event{Type: EventCardEdited, CardID: card.ID, ColumnID: col.ID, Fields: []string{FieldLabels}})
			}
		}
		return events, nil
	})
	return affected, err
}
