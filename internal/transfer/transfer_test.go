package transfer

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// populated returns a board with a few cards, one of them tracking.
func populated(t *testing.T) (*board.Board, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(epoch)
	b := board.New(fc)
	est := 30
	due := epoch.Add(72 * time.Hour)

	a, err := b.AddCard(models.ColumnInProgress, board.CardFields{
		Title:            "Parser",
		Labels:           []string{"core"},
		EstimatedMinutes: &est,
		DueDate:          &due,
		Checklist:        []models.ChecklistItem{{Text: "lexer", IsChecked: true}, {Text: "ast"}},
	})
	require.NoError(t, err)
	_, err = b.AddCard(models.ColumnTodo, board.CardFields{Title: "Docs"})
	require.NoError(t, err)

	_, err = b.StartTracking(models.ColumnInProgress, a.ID)
	require.NoError(t, err)
	fc.Advance(45 * time.Second)
	_, err = b.StopTracking(models.ColumnInProgress, a.ID)
	require.NoError(t, err)
	_, err = b.StartTracking(models.ColumnInProgress, a.ID)
	require.NoError(t, err)
	fc.Advance(15 * time.Second)
	return b, fc
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			b, _ := populated(t)
			snap := b.Snapshot()

			var buf bytes.Buffer
			require.NoError(t, Export(&buf, snap, f))

			got, err := Import(&buf, f)
			require.NoError(t, err)
			require.Len(t, got.Columns, len(snap.Columns))

			for i, col := range snap.Columns {
				assert.Equal(t, col.ID, got.Columns[i].ID)
				assert.Equal(t, col.Title, got.Columns[i].Title)
				require.Len(t, got.Columns[i].Cards, len(col.Cards))
				for j, card := range col.Cards {
					in := got.Columns[i].Cards[j]
					assert.Equal(t, card.ID, in.ID)
					assert.Equal(t, card.Title, in.Title)
					assert.Equal(t, card.TimeSpentSeconds, in.TimeSpentSeconds)
					assert.Equal(t, card.Labels, in.Labels)
					assert.Equal(t, len(card.AuditHistory), len(in.AuditHistory))
					assert.False(t, in.IsTracking)
					assert.Nil(t, in.TrackingStartedAt)
				}
			}

			parser := got.Columns[1].Cards[0]
			assert.Equal(t, int64(45), parser.TimeSpentSeconds)
			require.NotNil(t, parser.EstimatedMinutes)
			assert.Equal(t, 30, *parser.EstimatedMinutes)
			require.NotNil(t, parser.DueDate)
			assert.True(t, parser.DueDate.Equal(epoch.Add(72*time.Hour)))
		})
	}
}

func TestRoundTrip_IntoBoard(t *testing.T) {
	src, _ := populated(t)
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, src.Snapshot(), FormatJSON))

	snap, err := Import(&buf, FormatJSON)
	require.NoError(t, err)

	dst := board.New(clock.NewFake(epoch))
	require.NoError(t, dst.Replace(snap))
	assert.Empty(t, dst.TrackingCards())
	assert.Equal(t, 2, dst.Snapshot().CardCount())
}

func TestImport_BareArray(t *testing.T) {
	doc := `[{"id":"todo","title":"To Do","cards":[{"id":"c1","title":"A","timeSpentSeconds":12,"isTracking":true}]}]`
	snap, err := Import(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, snap.Columns, 1)
	assert.Equal(t, models.SnapshotVersion, snap.Version)
	assert.False(t, snap.Columns[0].Cards[0].IsTracking)
	assert.Equal(t, int64(12), snap.Columns[0].Cards[0].TimeSpentSeconds)

	yamlDoc := "- id: done\n  title: Done\n  cards: []\n"
	snap, err = Import(strings.NewReader(yamlDoc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnDone, snap.Columns[0].ID)
	assert.NotNil(t, snap.Columns[0].Cards)
}

func TestImport_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `{columns`,
		"no columns":     `{"version":1,"columns":[]}`,
		"missing title":  `[{"id":"todo"}]`,
		"unknown column": `[{"id":"backlog","title":"Backlog"}]`,
		"dup column":     `[{"id":"todo","title":"A"},{"id":"todo","title":"B"}]`,
		"card no id":     `[{"id":"todo","title":"To Do","cards":[{"title":"x"}]}]`,
		"card no title":  `[{"id":"todo","title":"To Do","cards":[{"id":"c1","title":"  "}]}]`,
		"dup card":       `[{"id":"todo","title":"To Do","cards":[{"id":"c1","title":"a"}]},{"id":"done","title":"Done","cards":[{"id":"c1","title":"b"}]}]`,
		"negative time":  `[{"id":"todo","title":"To Do","cards":[{"id":"c1","title":"a","timeSpentSeconds":-1}]}]`,
		"future version": `{"version":99,"columns":[{"id":"todo","title":"To Do"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Import(strings.NewReader(doc), FormatJSON)
			require.Error(t, err)
			assert.True(t, IsImportFormatError(err), "got %T", err)
		})
	}
}

func TestImport_UnsupportedFormat(t *testing.T) {
	_, err := Import(strings.NewReader("a,b"), FormatCSV)
	assert.True(t, IsImportFormatError(err))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatFromPath("board.yaml"))
	assert.Equal(t, FormatCSV, FormatFromPath("/tmp/out.csv"))
	assert.Equal(t, FormatJSON, FormatFromPath("board"))
	assert.True(t, FormatJSON.Snapshottable())
	assert.False(t, FormatCSV.Snapshottable())
}

func TestExportedName(t *testing.T) {
	assert.Equal(t, "chronoflow-20250301-090000.json", ExportedName(epoch, FormatJSON))
	assert.Equal(t, "chronoflow-20250301-090000.md", ExportedName(epoch, FormatMarkdown))
}

func TestWriteReport_CSV(t *testing.T) {
	b, fc := populated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, b.Columns(), FormatCSV, fc.Now()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reportHeader, rows[0])

	docs, parser := rows[1], rows[2]
	assert.Equal(t, "todo", docs[0])
	assert.Equal(t, "Parser", parser[2])
	assert.Equal(t, "30", parser[4])
	assert.Equal(t, "60", parser[5], "live time includes the running session")
	assert.Equal(t, "true", parser[6])
	assert.Equal(t, "1/2", parser[7])
	assert.Equal(t, "2025-03-04", parser[8])
}

func TestWriteReport_Markdown(t *testing.T) {
	b, fc := populated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, b.Columns(), FormatMarkdown, fc.Now()))

	out := buf.String()
	assert.Contains(t, out, "# Board Report")
	assert.Contains(t, out, "## In Progress (1)")
	assert.Contains(t, out, "| Parser | 30 | 60 | 1/2 | 2025-03-04 |")
	assert.Contains(t, out, "_No cards._")

	assert.Error(t, WriteReport(&buf, nil, FormatJSON, fc.Now()))
}
