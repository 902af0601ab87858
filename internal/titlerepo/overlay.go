package titlerepo

import "github.com/ObviusOwl/amc2cached/internal/domain"

// Overlay composes a read-only base repository with a writable upper one:
// reads union both layers, writes and removes target the upper layer
// only. This is how the anidb XML index (base) is combined with
// operator-entered extra titles (upper).
type Overlay struct {
	Base  Repo
	Upper Repo
}

var _ Repo = (*Overlay)(nil)

func NewOverlay(base, upper Repo) *Overlay {
	return &Overlay{Base: base, Upper: upper}
}

func (o *Overlay) Find(title domain.Title) ([]domain.TitleEntry, error) {
	fromBase, err := o.Base.Find(title)
	if err != nil {
		return nil, err
	}
	fromUpper, err := o.Upper.Find(title)
	if err != nil {
		return nil, err
	}
	return append(fromBase, fromUpper...), nil
}

func (o *Overlay) Store(entry domain.TitleEntry) error { return o.Upper.Store(entry) }
func (o *Overlay) Purge() error                        { return o.Upper.Purge() }
func (o *Overlay) Remove(title domain.Title) error     { return o.Upper.Remove(title) }
