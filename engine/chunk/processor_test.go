package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, size, overlap int) *Processor {
	t.Helper()
	processor, err := NewProcessor(Settings{Size: size, Overlap: overlap})
	require.NoError(t, err)
	return processor
}

// stripBoundaries removes separator characters so texts can be compared for
// content equivalence regardless of where unit boundaries fell.
func stripBoundaries(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '.':
			return -1
		}
		return r
	}, s)
}

func TestNewProcessor(t *testing.T) {
	t.Run("ShouldRejectNonPositiveSize", func(t *testing.T) {
		_, err := NewProcessor(Settings{Size: 0, Overlap: 10})
		require.Error(t, err)
	})
	t.Run("ShouldRejectNonPositiveOverlap", func(t *testing.T) {
		_, err := NewProcessor(Settings{Size: 100, Overlap: 0})
		require.Error(t, err)
	})
	t.Run("ShouldRejectOverlapNotSmallerThanSize", func(t *testing.T) {
		_, err := NewProcessor(Settings{Size: 100, Overlap: 100})
		require.Error(t, err)
	})
}

func TestSplit(t *testing.T) {
	t.Run("ShouldReturnNilForEmptyText", func(t *testing.T) {
		processor := newTestProcessor(t, 100, 20)
		assert.Nil(t, processor.Split(""))
	})
	t.Run("ShouldReturnWholeTextWhenWithinSize", func(t *testing.T) {
		processor := newTestProcessor(t, 100, 20)
		text := "short text that fits in one passage"
		assert.Equal(t, []string{text}, processor.Split(text))
	})
	t.Run("ShouldPreferParagraphBoundaries", func(t *testing.T) {
		processor := newTestProcessor(t, 40, 10)
		text := strings.Repeat("x", 30) + "\n\n" + strings.Repeat("y", 30)
		units := processor.Split(text)
		require.Len(t, units, 2)
		assert.Equal(t, strings.Repeat("x", 30), units[0])
		assert.True(t, strings.HasSuffix(units[1], strings.Repeat("y", 30)))
	})
	t.Run("ShouldBeDeterministic", func(t *testing.T) {
		processor := newTestProcessor(t, 50, 10)
		text := strings.Repeat("alpha beta gamma delta. ", 20)
		assert.Equal(t, processor.Split(text), processor.Split(text))
	})
}

func TestSplitSentenceText(t *testing.T) {
	// 24 sentences of 100 bytes plus one of 100 bytes: exactly 2500 bytes.
	body := strings.Repeat("a", 98)
	last := strings.Repeat("b", 99) + "."
	text := strings.Repeat(body+". ", 24) + last
	require.Len(t, text, 2500)

	processor := newTestProcessor(t, 1000, 200)
	units := processor.Split(text)
	require.Len(t, units, 3)

	cores := coresOf(units, 200)
	for _, core := range cores {
		assert.LessOrEqual(t, len(core), 1000)
	}
	// Units 2 and 3 begin with the trailing 200 bytes of the preceding core.
	assert.True(t, strings.HasPrefix(units[1], cores[0][len(cores[0])-200:]+" "))
	assert.True(t, strings.HasPrefix(units[2], cores[1][len(cores[1])-200:]+" "))
}

func TestSplitCharacterFallback(t *testing.T) {
	processor := newTestProcessor(t, 1000, 200)
	text := strings.Repeat("z", 2500)
	units := processor.Split(text)
	// Window starts advance by 800: 0, 800, 1600, 2400.
	require.Len(t, units, 4)
	cores := coresOf(units, 200)
	assert.Equal(t, text[0:1000], cores[0])
	assert.Equal(t, text[800:1800], cores[1])
	assert.Equal(t, text[1600:2500], cores[2])
	assert.Equal(t, text[2400:2500], cores[3])
}

func TestSplitMultibyteText(t *testing.T) {
	t.Run("ShouldMeasureSizeInCharactersNotBytes", func(t *testing.T) {
		processor := newTestProcessor(t, 1000, 200)
		// 1000 characters but 3000 bytes; must stay a single passage.
		text := strings.Repeat("世", 1000)
		assert.Equal(t, []string{text}, processor.Split(text))
	})
	t.Run("ShouldKeepRunesIntactInCharacterFallback", func(t *testing.T) {
		processor := newTestProcessor(t, 1000, 200)
		text := strings.Repeat("世", 2500)
		units := processor.Split(text)
		// Window starts advance by 800 characters: 0, 800, 1600, 2400.
		require.Len(t, units, 4)
		for i, unit := range units {
			require.True(t, utf8.ValidString(unit), "unit %d must be valid UTF-8", i)
		}
		runes := []rune(text)
		assert.Equal(t, string(runes[:1000]), units[0])
		assert.True(t, strings.HasSuffix(units[3], string(runes[2400:])))
	})
	t.Run("ShouldTakeOverlapTailOnRuneBoundaries", func(t *testing.T) {
		processor := newTestProcessor(t, 40, 10)
		text := strings.Repeat("ä", 30) + "\n\n" + strings.Repeat("ö", 30)
		units := processor.Split(text)
		require.Len(t, units, 2)
		for i, unit := range units {
			require.True(t, utf8.ValidString(unit), "unit %d must be valid UTF-8", i)
		}
		assert.True(t, strings.HasPrefix(units[1], strings.Repeat("ä", 10)+" "))
	})
}

func TestSplitOverlapProperty(t *testing.T) {
	processor := newTestProcessor(t, 60, 15)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 12)
	units := processor.Split(text)
	require.Greater(t, len(units), 1)
	cores := coresOf(units, 15)
	for i := 1; i < len(units); i++ {
		prev := cores[i-1]
		want := prev
		if len(prev) > 15 {
			want = prev[len(prev)-15:]
		}
		assert.True(t, strings.HasPrefix(units[i], want+" "), "unit %d must start with predecessor tail", i)
	}
}

func TestSplitTotality(t *testing.T) {
	processor := newTestProcessor(t, 80, 20)
	text := strings.Repeat("lorem ipsum dolor sit amet. ", 15)
	units := processor.Split(text)
	require.NotEmpty(t, units)
	joined := strings.Join(coresOf(units, 20), " ")
	assert.Equal(t, stripBoundaries(text), stripBoundaries(joined))
}

func TestSplitOversizedSegment(t *testing.T) {
	// A paragraph whose single word exceeds the size budget must still be
	// bounded via the character fallback.
	processor := newTestProcessor(t, 30, 5)
	text := "tiny intro\n\n" + strings.Repeat("q", 90)
	units := processor.Split(text)
	require.NotEmpty(t, units)
	for _, core := range coresOf(units, 5) {
		assert.LessOrEqual(t, len(core), 30)
	}
}

// coresOf strips the prepended predecessor tail from every unit after the
// first, recovering the size-bounded cores.
func coresOf(units []string, overlap int) []string {
	cores := make([]string, len(units))
	for i, unit := range units {
		if i == 0 {
			cores[i] = unit
			continue
		}
		prev := cores[i-1]
		tail := prev
		if len(prev) > overlap {
			tail = prev[len(prev)-overlap:]
		}
		cores[i] = strings.TrimPrefix(unit, tail+" ")
	}
	return cores
}
