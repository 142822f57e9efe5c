package runedit

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
)

// fakeRun 测试用 Run，format 模拟不透明的格式信息
type fakeRun struct {
	text   string
	format string
	sets   int
}

func (r *fakeRun) Text() string { return r.text }

func (r *fakeRun) SetText(text string) {
	r.text = text
	r.sets++
}

func makeRuns(texts ...string) []domain.Run {
	runs := make([]domain.Run, len(texts))
	for i, text := range texts {
		runs[i] = &fakeRun{text: text, format: string(rune('A' + i))}
	}
	return runs
}

func runTexts(runs []domain.Run) []string {
	texts := make([]string, len(runs))
	for i, run := range runs {
		texts[i] = run.Text()
	}
	return texts
}

func runFormats(runs []domain.Run) []string {
	formats := make([]string, len(runs))
	for i, run := range runs {
		formats[i] = run.(*fakeRun).format
	}
	return formats
}

func TestFlatten(t *testing.T) {
	text, ranges := Flatten(makeRuns("Hello ", "", "World"))

	assert.Equal(t, "Hello World", text)
	want := []Range{{0, 5}, {6, 5}, {6, 10}}
	if diff := cmp.Diff(want, ranges); diff != "" {
		t.Errorf("Flatten() ranges mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, ranges[1].Len())
}

func TestResolve(t *testing.T) {
	ranges := []Range{{0, 4}, {5, 4}, {5, 9}, {10, 10}, {11, 15}}

	tests := []struct {
		name       string
		start, end int
		want       []int
	}{
		{name: "inside first", start: 1, end: 3, want: []int{0}},
		{name: "exact run", start: 5, end: 9, want: []int{2}},
		{name: "crosses empty run", start: 3, end: 6, want: []int{0, 1, 2}},
		{name: "ends at boundary before empty run", start: 2, end: 4, want: []int{0}},
		{name: "starts after empty run", start: 5, end: 7, want: []int{2}},
		{name: "spans all", start: 0, end: 15, want: []int{0, 1, 2, 3, 4}},
		{name: "single char run", start: 10, end: 10, want: []int{3}},
		{name: "out of range", start: 20, end: 22, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(ranges, tt.start, tt.end)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%d, %d) mismatch (-want +got):\n%s", tt.start, tt.end, diff)
			}
		})
	}
}

func TestResolve_GappedRanges(t *testing.T) {
	// 区间之间有空隙时，落在空隙中的匹配找不到任何 Run
	ranges := []Range{{0, 2}, {6, 8}}

	assert.Nil(t, Resolve(ranges, 3, 5))
	assert.Equal(t, []int{0, 1}, Resolve(ranges, 2, 6))

	_, err := resolveSpan(ranges, 3, 5)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation), "got %v", err)

	span, err := resolveSpan(ranges, 7, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, span)

	_, err = resolveSpan(nil, 0, 0)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}

func TestApply_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		runs        []string
		search      string
		replacement string
		wantRuns    []string
		wantFormats []string
		wantCount   int
	}{
		{
			name:        "search inside single run",
			runs:        []string{"Hello ", "World", "!"},
			search:      "World",
			replacement: "X",
			wantRuns:    []string{"Hello ", "X", "!"},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   1,
		},
		{
			name:        "search spans runs from run start",
			runs:        []string{"He", "llo Wo", "rld"},
			search:      "llo World",
			replacement: "Y",
			wantRuns:    []string{"He", "Y"},
			wantFormats: []string{"A", "B"},
			wantCount:   1,
		},
		{
			name:        "lead and trail kept, middle run carries replacement",
			runs:        []string{"abcX", "YYY", "Zdef"},
			search:      "XYYYZ",
			replacement: "R",
			wantRuns:    []string{"abc", "R", "def"},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   1,
		},
		{
			name:        "lead, two consumed runs, trail",
			runs:        []string{"ab", "cd", "ef", "gh"},
			search:      "bcdefg",
			replacement: "-",
			wantRuns:    []string{"a", "-", "h"},
			wantFormats: []string{"A", "B", "D"},
			wantCount:   1,
		},
		{
			name:        "lead and trail only",
			runs:        []string{"Hello Wo", "rld!"},
			search:      "World",
			replacement: "There",
			wantRuns:    []string{"Hello ", "There!"},
			wantFormats: []string{"A", "B"},
			wantCount:   1,
		},
		{
			name:        "search equals whole run",
			runs:        []string{"a", "#NAME#", "b"},
			search:      "#NAME#",
			replacement: "John",
			wantRuns:    []string{"a", "John", "b"},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   1,
		},
		{
			name:        "pure deletion",
			runs:        []string{"keep ", "dr", "op", " keep"},
			search:      "drop",
			replacement: "",
			wantRuns:    []string{"keep ", "", " keep"},
			wantFormats: []string{"A", "B", "D"},
			wantCount:   1,
		},
		{
			name:        "multiple occurrences in one run",
			runs:        []string{"x#A#y#A#z"},
			search:      "#A#",
			replacement: "1",
			wantRuns:    []string{"x1y1z"},
			wantFormats: []string{"A"},
			wantCount:   2,
		},
		{
			name:        "occurrences sharing a run",
			runs:        []string{"#N", "AME# and #NA", "ME#"},
			search:      "#NAME#",
			replacement: "Bob",
			wantRuns:    []string{"Bob", " and ", "Bob"},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   2,
		},
		{
			name:        "overlapping candidates replaced greedily",
			runs:        []string{"aa", "a"},
			search:      "aa",
			replacement: "X",
			wantRuns:    []string{"X", "a"},
			wantFormats: []string{"A", "B"},
			wantCount:   1,
		},
		{
			name:        "empty run inside match is removed",
			runs:        []string{"x", "ab", "", "cd", "y"},
			search:      "abcd",
			replacement: "Z",
			wantRuns:    []string{"x", "Z", "y"},
			wantFormats: []string{"A", "B", "E"},
			wantCount:   1,
		},
		{
			name:        "empty run after lead carries replacement",
			runs:        []string{"foo", "", "bar"},
			search:      "oob",
			replacement: "_",
			wantRuns:    []string{"f", "_", "ar"},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   1,
		},
		{
			name:        "empty runs at paragraph edges survive",
			runs:        []string{"", "foo", ""},
			search:      "foo",
			replacement: "bar",
			wantRuns:    []string{"", "bar", ""},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   1,
		},
		{
			name:        "not found",
			runs:        []string{"Hello ", "World"},
			search:      "Moon",
			replacement: "X",
			wantRuns:    []string{"Hello ", "World"},
			wantFormats: []string{"A", "B"},
			wantCount:   0,
		},
		{
			name:        "multibyte across runs",
			runs:        []string{"产品", "名称：", "#产", "品#"},
			search:      "#产品#",
			replacement: "示例",
			wantRuns:    []string{"产品", "名称：", "示例"},
			wantFormats: []string{"A", "B", "C"},
			wantCount:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := makeRuns(tt.runs...)
			got, count, err := Apply(runs, tt.search, tt.replacement)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCount, count)
			if diff := cmp.Diff(tt.wantRuns, runTexts(got)); diff != "" {
				t.Errorf("run texts mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantFormats, runFormats(got)); diff != "" {
				t.Errorf("run formats mismatch (-want +got):\n%s", diff)
			}

			want := strings.Replace(strings.Join(tt.runs, ""), tt.search, tt.replacement, -1)
			assert.Equal(t, want, Text(got))
		})
	}
}

func TestApply_EmptySearch(t *testing.T) {
	runs := makeRuns("Hello ", "World")

	_, _, err := Apply(runs, "", "X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, []string{"Hello ", "World"}, runTexts(runs))
	for _, run := range runs {
		assert.Zero(t, run.(*fakeRun).sets)
	}
}

func TestApply_NoRuns(t *testing.T) {
	got, count, err := Apply(nil, "a", "b")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, got)
}

func TestApply_UntouchedRunsAreNotWritten(t *testing.T) {
	runs := makeRuns("one ", "#K", "EY#", " two", " three")
	untouched := []*fakeRun{runs[0].(*fakeRun), runs[3].(*fakeRun), runs[4].(*fakeRun)}

	got, count, err := Apply(runs, "#KEY#", "v")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "one v two three", Text(got))

	for _, run := range untouched {
		assert.Zero(t, run.sets, "run %q should not be written", run.text)
	}
	assert.Same(t, runs[0], got[0])
	assert.Same(t, runs[3], got[2])
}

func TestApply_Idempotent(t *testing.T) {
	runs := makeRuns("The qu", "ick fox, the qui", "ck dog")

	first, count, err := Apply(runs, "quick", "slow")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "The slow fox, the slow dog", Text(first))

	second, count, err := Apply(first, "quick", "slow")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, runTexts(first), runTexts(second))
}

type fakeParagraph struct {
	runs []domain.Run
}

func (p *fakeParagraph) Runs() []domain.Run { return p.runs }

func (p *fakeParagraph) SetRuns(runs []domain.Run) error {
	p.runs = runs
	return nil
}

func TestReplaceInParagraph(t *testing.T) {
	p := &fakeParagraph{runs: makeRuns("Dear ", "#NA", "ME#", ",")}

	count, err := ReplaceInParagraph(p, "#NAME#", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"Dear ", "Alice", ","}, runTexts(p.runs))

	count, err = ReplaceInParagraph(&fakeParagraph{}, "#NAME#", "Alice")
	require.NoError(t, err)
	assert.Zero(t, count)
}
