package engine

import (
	"intraday-accounting/internal/interfaces"
	"intraday-accounting/internal/journal"
	"intraday-accounting/internal/store"
)

func New(cfg *store.Config, jrnl *journal.SQLiteJournal) interfaces.Accounting {
	return newEngine(cfg, jrnl)
}
