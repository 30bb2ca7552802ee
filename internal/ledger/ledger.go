// Package ledger maintains the two uid-keyed TSV result files across
// repeated runs. A run regenerates the rows of its processed uid range
// and carries every other row forward verbatim from the previous file
// content.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Entry is one ledger row: the formatted line without its trailing
// newline, keyed by the uid in the leading column.
type Entry struct {
	UID  int
	Line string
}

// Prior is the in-memory image of one ledger file as it stood before
// the run: an ordered multimap from uid to lines. Duplicate keys keep
// their separate lines and their relative order.
type Prior struct {
	entries []Entry
	byUID   map[int][]int
	maxUID  int
}

// ReadPrior loads a ledger file. A missing file is an empty prior, not
// an error. A line whose leading column does not parse as a uid is
// keyed as 0 so it survives at the front of the next write instead of
// being dropped.
func ReadPrior(path string, log zerolog.Logger) (*Prior, error) {
	p := &Prior{byUID: make(map[int][]int)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		uid, ok := leadingUID(line)
		if !ok {
			log.Warn().Str("ledger", path).Msg("keeping ledger line without a uid key")
			uid = 0
		}
		p.add(Entry{UID: uid, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	return p, nil
}

func (p *Prior) add(e Entry) {
	p.byUID[e.UID] = append(p.byUID[e.UID], len(p.entries))
	p.entries = append(p.entries, e)
	if e.UID > p.maxUID {
		p.maxUID = e.UID
	}
}

// Len is the number of cached lines.
func (p *Prior) Len() int { return len(p.entries) }

// MaxUID is the highest uid on file, 0 for an empty prior.
func (p *Prior) MaxUID() int { return p.maxUID }

// Lines returns the cached lines keyed by uid, in file order.
func (p *Prior) Lines(uid int) []string {
	idx := p.byUID[uid]
	if len(idx) == 0 {
		return nil
	}
	lines := make([]string, len(idx))
	for i, j := range idx {
		lines[i] = p.entries[j].Line
	}
	return lines
}

func (p *Prior) sortedKeys() []int {
	keys := make([]int, 0, len(p.byUID))
	for uid := range p.byUID {
		keys = append(keys, uid)
	}
	sort.Ints(keys)
	return keys
}

// leadingUID parses the integer before the first tab.
func leadingUID(line string) (int, bool) {
	head, _, found := strings.Cut(line, "\t")
	if !found {
		head = line
	}
	uid, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return uid, true
}

// MergeLines assembles the next full content of one ledger: prior
// lines with uid below start (ascending uid, file order within a uid),
// then the fresh rows in their given order, then prior lines with uid
// above end. Prior lines inside [start, end] are dropped; the range is
// regenerated, not merged.
func MergeLines(prior *Prior, fresh []Entry, start, end int) []string {
	keys := prior.sortedKeys()
	out := make([]string, 0, prior.Len()+len(fresh))

	for _, uid := range keys {
		if uid >= start {
			break
		}
		out = append(out, prior.Lines(uid)...)
	}
	for _, e := range fresh {
		out = append(out, e.Line)
	}
	for _, uid := range keys {
		if uid <= end {
			continue
		}
		out = append(out, prior.Lines(uid)...)
	}
	return out
}

// Merger owns the two ledgers for the duration of one run: the prior
// caches and, at commit time, the output files. No other writer may
// touch the files while a Merger is live.
type Merger struct {
	rawPath   string
	statsPath string
	raw       *Prior
	stats     *Prior
	log       zerolog.Logger
}

// NewMerger addresses the two ledger files of a run.
func NewMerger(rawPath, statsPath string, log zerolog.Logger) *Merger {
	return &Merger{rawPath: rawPath, statsPath: statsPath, log: log}
}

// Load caches both prior ledgers in memory. It must run before any
// fatal-input validation gives way to output writing; after Load the
// files may be truncated without losing history.
func (m *Merger) Load() error {
	var err error
	if m.raw, err = ReadPrior(m.rawPath, m.log); err != nil {
		return err
	}
	if m.stats, err = ReadPrior(m.statsPath, m.log); err != nil {
		return err
	}
	return nil
}

// MaxPriorUID is the highest uid either ledger had on file.
func (m *Merger) MaxPriorUID() int {
	if m.raw == nil || m.stats == nil {
		return 0
	}
	if m.raw.MaxUID() > m.stats.MaxUID() {
		return m.raw.MaxUID()
	}
	return m.stats.MaxUID()
}

// CommitCounts reports what a commit wrote.
type CommitCounts struct {
	RawFresh     int
	RawCarried   int
	StatsFresh   int
	StatsCarried int
}

// Commit rewrites both ledger files from the cached priors and the
// run's fresh rows. Fresh rows must all carry uids inside [start, end].
func (m *Merger) Commit(rawRows, statsRows []Entry, start, end int) (CommitCounts, error) {
	if m.raw == nil || m.stats == nil {
		return CommitCounts{}, fmt.Errorf("commit before load")
	}

	rawOut := MergeLines(m.raw, rawRows, start, end)
	statsOut := MergeLines(m.stats, statsRows, start, end)
	counts := CommitCounts{
		RawFresh:     len(rawRows),
		RawCarried:   len(rawOut) - len(rawRows),
		StatsFresh:   len(statsRows),
		StatsCarried: len(statsOut) - len(statsRows),
	}

	if err := writeLines(m.rawPath, rawOut); err != nil {
		return counts, err
	}
	if err := writeLines(m.statsPath, statsOut); err != nil {
		return counts, err
	}
	return counts, nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("truncate ledger: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write ledger %s: %w", path, err)
	}
	return f.Close()
}
