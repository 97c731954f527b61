package bot

import "strings"

// Kind is the closed set of commands the router understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindHelp
	KindAdd
	KindReport
	KindChart
	KindBalance
	KindCategories
	KindSearch
	KindExpense
	KindIncome
	KindToday
	KindWeek
	KindYearly
	KindRanking
	KindStat
	KindReminder
	KindBackup
	KindReset
	KindAdvice
	KindProgress
	KindTarget
	KindDelete
	KindEdit
	KindSplit
	KindMotivation
	KindOSINT
	KindHunter
	KindWishlist
	KindVault
	KindUpload
	KindDashboard
	KindToken
	KindIssueToken
	KindListUsers
	KindDeactivate

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:    "unknown",
	KindHelp:       "help",
	KindAdd:        "tambah",
	KindReport:     "laporan",
	KindChart:      "grafik",
	KindBalance:    "saldo",
	KindCategories: "kategori",
	KindSearch:     "cari",
	KindExpense:    "pengeluaran",
	KindIncome:     "pemasukan",
	KindToday:      "hari",
	KindWeek:       "minggu",
	KindYearly:     "tahunan",
	KindRanking:    "ranking",
	KindStat:       "stat",
	KindReminder:   "reminder",
	KindBackup:     "backup",
	KindReset:      "reset",
	KindAdvice:     "saran",
	KindProgress:   "progress",
	KindTarget:     "target",
	KindDelete:     "hapus",
	KindEdit:       "edit",
	KindSplit:      "split",
	KindMotivation: "motivasi",
	KindOSINT:      "osint",
	KindHunter:     "hunter",
	KindWishlist:   "wishlist",
	KindVault:      "vault",
	KindUpload:     "upload",
	KindDashboard:  "dashboard",
	KindToken:      "token",
	KindIssueToken: "buatoken",
	KindListUsers:  "listuser",
	KindDeactivate: "nonaktif",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

var (
	globalWords = map[string]struct{}{
		"menu":   {},
		"help":   {},
		"start":  {},
		"/start": {},
	}

	adminWords = map[string]Kind{
		"buatoken": KindIssueToken,
		"listuser": KindListUsers,
		"nonaktif": KindDeactivate,
	}

	commandWords = map[string]Kind{
		"help":        KindHelp,
		"menu":        KindHelp,
		"tambah":      KindAdd,
		"laporan":     KindReport,
		"report":      KindReport,
		"grafik":      KindChart,
		"saldo":       KindBalance,
		"kategori":    KindCategories,
		"cari":        KindSearch,
		"pengeluaran": KindExpense,
		"pemasukan":   KindIncome,
		"hari":        KindToday,
		"minggu":      KindWeek,
		"tahunan":     KindYearly,
		"ranking":     KindRanking,
		"stat":        KindStat,
		"reminder":    KindReminder,
		"backup":      KindBackup,
		"reset":       KindReset,
		"saran":       KindAdvice,
		"progress":    KindProgress,
		"target":      KindTarget,
		"hapus":       KindDelete,
		"edit":        KindEdit,
		"split":       KindSplit,
		"bayar":       KindSplit,
		"motivasi":    KindMotivation,
		"osint":       KindOSINT,
		"hunter":      KindHunter,
		"wishlist":    KindWishlist,
		"vault":       KindVault,
		"upload":      KindUpload,
		"dashboard":   KindDashboard,
	}
)

// ParseKind maps the first word of a message to a user command. Admin
// verbs and token redemption are not part of this table.
func ParseKind(word string) Kind {
	if k, ok := commandWords[strings.ToLower(word)]; ok {
		return k
	}
	return KindUnknown
}

func isGlobalWord(word string) bool {
	_, ok := globalWords[strings.ToLower(word)]
	return ok
}

func adminKind(word string) Kind {
	if k, ok := adminWords[strings.ToLower(word)]; ok {
		return k
	}
	return KindUnknown
}
