// Package timeslot чистая интервальная арифметика расчета свободного времени
// и генерация бронируемых слотов. Пакет не обращается к хранилищу: все входные
// данные (расписания, занятость, внешние busy-блоки) передаются параметрами
package timeslot

import (
	"sort"
	"time"
)

// Interval полуоткрытый временной интервал [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval создает интервал
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// IsZero returns true for an empty or inverted interval
func (i Interval) IsZero() bool {
	return !i.End.After(i.Start)
}

// Duration returns the interval length
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the intervals actually intersect.
// Границы не считаются пересечением: [a,b) и [b,c) не пересекаются
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains reports whether other lies entirely within i
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Clip returns the part of i inside bounds (may be zero)
func (i Interval) Clip(bounds Interval) Interval {
	out := i
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out
}

// Merge сортирует интервалы и объединяет пересекающиеся и соприкасающиеся,
// отбрасывая пустые. Результат отсортирован, не пересекается, минимален
func Merge(intervals []Interval) []Interval {
	in := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.IsZero() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(a, b int) bool { return in[a].Start.Before(in[b].Start) })

	out := make([]Interval, 0, len(in))
	current := in[0]
	for _, iv := range in[1:] {
		if !iv.Start.After(current.End) {
			if iv.End.After(current.End) {
				current.End = iv.End
			}
			continue
		}
		out = append(out, current)
		current = iv
	}
	out = append(out, current)

	return out
}

// Subtract возвращает base \ busy. Оба аргумента могут быть неотсортированы;
// результат отсортирован, не пересекается и не содержит пустых интервалов
func Subtract(base, busy []Interval) []Interval {
	free := Merge(base)
	holes := Merge(busy)

	if len(holes) == 0 {
		return free
	}

	out := make([]Interval, 0, len(free))
	for _, iv := range free {
		remaining := iv
		for _, hole := range holes {
			if !remaining.Overlaps(hole) {
				continue
			}
			if hole.Start.After(remaining.Start) {
				out = append(out, Interval{Start: remaining.Start, End: hole.Start})
			}
			remaining.Start = hole.End
			if remaining.IsZero() {
				break
			}
		}
		if !remaining.IsZero() {
			out = append(out, remaining)
		}
	}

	return out
}
