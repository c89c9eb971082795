// Package expiry вычисляет крайний срок подтверждения заказа продавцом.
package expiry

import "time"

// Policy описывает ежедневное торговое окно, вне которого заказы не истекают.
type Policy struct {
	// Location задаёт часовой пояс, в котором считаются часы окна.
	Location   *time.Location
	CloseHour  int
	ReopenHour int
	Window     time.Duration
}

// Default окно 10:00–21:00 по UTC с часом на подтверждение.
func Default() Policy {
	return Policy{
		Location:   time.UTC,
		CloseHour:  21,
		ReopenHour: 10,
		Window:     time.Hour,
	}
}

// InLocation возвращает копию политики для указанного часового пояса.
func (p Policy) InLocation(loc *time.Location) Policy {
	if loc != nil {
		p.Location = loc
	}
	return p
}

// ExpiresAt возвращает момент, до которого заказ, созданный в now, должен быть принят.
//
// После закрытия окна срок переносится на открытие следующего дня,
// а срок, попадающий на закрытие, обрезается до времени закрытия.
func (p Policy) ExpiresAt(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if local.Hour() >= p.CloseHour {
		y, m, d := local.Date()
		return time.Date(y, m, d+1, p.ReopenHour, 0, 0, 0, loc)
	}

	tentative := local.Add(p.Window)
	if tentative.Hour() >= p.CloseHour {
		y, m, d := local.Date()
		return time.Date(y, m, d, p.CloseHour, 0, 0, 0, loc)
	}

	return tentative
}
