package strand

import (
	"errors"
	"io"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func groupNames(t *testing.T, g *Grouper) [][]string {
	var names [][]string
	for g.Scan() {
		var group []string
		for _, a := range g.Group() {
			group = append(group, a.Name)
		}
		names = append(names, group)
	}
	require.NoError(t, g.Err())
	return names
}

func TestGrouperAdjacentRuns(t *testing.T) {
	r := samReader(t,
		"a\t0\tchr1\t100\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\tAS:i:0\n",
		"a\t256\tchr1\t200\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\tAS:i:0\n",
		"b\t0\tchr1\t100\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\tAS:i:0\n",
		"a\t0\tchr1\t300\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\tAS:i:0\n",
		"c\t4\t*\t0\t0\t*\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\n",
	)
	expect.EQ(t, groupNames(t, NewGrouper(r)), [][]string{{"a", "a"}, {"b"}, {"a"}, {"c"}})
}

func TestGrouperEmpty(t *testing.T) {
	g := NewGrouper(samReader(t))
	expect.False(t, g.Scan())
	expect.NoError(t, g.Err())
}

func TestGrouperTags(t *testing.T) {
	r := samReader(t,
		"a\t16\tchr1\t100\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\tAS:i:-300\tXS:A:-\tNH:i:1\n",
		"a\t272\tchr1\t100\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\tXS:A:+\tAS:Z:bogus\n",
	)
	g := NewGrouper(r)
	require.True(t, g.Scan())
	expect.EQ(t, g.Group(), []Alignment{
		{Name: "a", Flags: 16, Score: -300, Scored: true, Strand: Reverse},
		{Name: "a", Flags: 272, Strand: Forward},
	})
	expect.False(t, g.Scan())
}

type failingSource struct {
	recs []*sam.Record
	err  error
}

func (s *failingSource) Read() (*sam.Record, error) {
	if len(s.recs) == 0 {
		return nil, s.err
	}
	r := s.recs[0]
	s.recs = s.recs[1:]
	return r, nil
}

func TestGrouperError(t *testing.T) {
	boom := errors.New("boom")
	src := &failingSource{
		recs: []*sam.Record{{Name: "a"}, {Name: "b"}},
		err:  boom,
	}
	g := NewGrouper(src)
	require.True(t, g.Scan())
	expect.EQ(t, len(g.Group()), 1)
	expect.False(t, g.Scan())
	expect.EQ(t, g.Err(), boom)

	g = NewGrouper(&failingSource{err: io.EOF})
	expect.False(t, g.Scan())
	expect.Nil(t, g.Err())
}
