package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/clients/osint"
	"caku/internal/models"
	"caku/internal/service"
)

func TestParseEntry(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 6, 10, 14, 30, 0, 0, wib)

	tests := []struct {
		name     string
		input    string
		amount   int64
		desc     string
		category string
		at       string
	}{
		{name: "income", input: "+100000 Gaji", amount: 100000, desc: "Gaji"},
		{name: "expense with category", input: "-50000 Makan siang [food]", amount: -50000, desc: "Makan siang", category: "food"},
		{name: "separators", input: "-1.250.000 sewa", amount: -1250000, desc: "sewa"},
		{name: "dated", input: "-50000 Makan [food] 01-05-2024", amount: -50000, desc: "Makan", category: "food", at: "2024-05-01 14:30"},
		{name: "no description", input: "+5000", amount: 5000, desc: "-"},
		{name: "unsigned", input: "7500 parkir", amount: 7500, desc: "parkir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ParseEntry(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, entry.Amount)
			assert.Equal(t, tt.desc, entry.Description)
			if tt.category == "" {
				assert.Nil(t, entry.Category)
			} else {
				require.NotNil(t, entry.Category)
				assert.Equal(t, tt.category, *entry.Category)
			}
			if tt.at == "" {
				assert.Nil(t, entry.At)
			} else {
				require.NotNil(t, entry.At)
				assert.Equal(t, tt.at, entry.At.Format("2006-01-02 15:04"))
				assert.Equal(t, wib, entry.At.Location())
			}
		})
	}
}

func TestParseEntryRejectsBadAmounts(t *testing.T) {
	now := time.Now()
	for _, input := range []string{"", "+0 nothing", "abc makan", "-12x lunch", "+5000 x 31-02-2024"} {
		_, err := ParseEntry(input, now)
		assert.ErrorIs(t, err, service.ErrInvalidAmount, input)
	}
}

func TestParseSplit(t *testing.T) {
	split, ok := ParseSplit("bayar 150000 makan malam - bareng @12345, @67890 via dana")
	require.True(t, ok)
	assert.Equal(t, int64(150000), split.Total)
	assert.Equal(t, "makan malam", split.Description)
	assert.Equal(t, []string{"12345", "67890"}, split.People)
	assert.Equal(t, "Dana", split.Method)
	assert.Equal(t, int64(50000), splitShare(split))

	split, ok = ParseSplit("Bayar 20000 kopi - bareng @1")
	require.True(t, ok)
	assert.Equal(t, "Transfer", split.Method)
	assert.Equal(t, []string{"1"}, split.People)

	for _, input := range []string{"bayar", "bayar 0 x - bareng @1", "bayar 100 kopi", "bayar 100 kopi - bareng semua"} {
		_, ok := ParseSplit(input)
		assert.False(t, ok, input)
	}
}

func TestParseHunterQuery(t *testing.T) {
	q, ok := ParseHunterQuery([]string{"ana@example.com"})
	require.True(t, ok)
	assert.Equal(t, osint.HunterQuery{Email: "ana@example.com"}, q)

	q, ok = ParseHunterQuery([]string{"example.com"})
	require.True(t, ok)
	assert.Equal(t, osint.HunterQuery{Domain: "example.com"}, q)

	q, ok = ParseHunterQuery([]string{"Ana", "Putri", "example.com"})
	require.True(t, ok)
	assert.Equal(t, osint.HunterQuery{FirstName: "Ana", LastName: "Putri", Domain: "example.com"}, q)

	_, ok = ParseHunterQuery(nil)
	assert.False(t, ok)
	_, ok = ParseHunterQuery([]string{"ana"})
	assert.False(t, ok)
}

func TestRupiah(t *testing.T) {
	cases := map[int64]string{
		0:        "Rp0",
		999:      "Rp999",
		1000:     "Rp1.000",
		1250000:  "Rp1.250.000",
		-50000:   "Rp-50.000",
		12345678: "Rp12.345.678",
	}
	for in, want := range cases {
		assert.Equal(t, want, Rupiah(in))
	}
}

func TestTransactionListTruncates(t *testing.T) {
	food := "food"
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	rows := []models.Transaction{
		{ID: 3, Amount: -20000, Description: "makan", Category: &food, CreatedAt: at},
		{ID: 2, Amount: 50000, Description: "gaji", CreatedAt: at},
		{ID: 1, Amount: -1000, Description: "parkir", CreatedAt: at},
	}

	text := transactionList("Header", rows, time.UTC, "02/01 15:04", 2)
	assert.Equal(t, "Header\n\n#3 ➖ Rp20.000 | makan | food | 01/05 08:00\n#2 ➕ Rp50.000 | gaji | - | 01/05 08:00\n\n...dan 1 transaksi lainnya.", text)
}

func TestExportCSV(t *testing.T) {
	food := "food"
	generated := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)
	rows := []models.Transaction{
		{ID: 7, Amount: -20000, Description: "makan, siang", Category: &food, CreatedAt: generated},
	}

	data, err := exportCSV("42", rows, time.UTC, generated)
	require.NoError(t, err)
	assert.Equal(t, "Laporan Keuangan\nUser: 42,Generated: 2024-05-31 23:00\nID,Tanggal,Amount,Description,Category\n7,2024-05-31 23:00,-20000,\"makan, siang\",food\n", string(data))
	assert.Equal(t, "laporan_42_20240531_230000.csv", exportName("42", generated))
}
