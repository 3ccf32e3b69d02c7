package service

import "time"

// now текущее время в UTC, подменяется в тестах
var now = func() time.Time {
	return time.Now().UTC()
}
