package strand

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

func TestSenseSingleEnd(t *testing.T) {
	expect.True(t, Sense(16, Reverse))
	expect.False(t, Sense(0, Reverse))
	expect.False(t, Sense(16, Forward))
	expect.True(t, Sense(0, Forward))
}

func TestSensePairedEnd(t *testing.T) {
	// 147 = paired + proper pair + reverse + second mate.
	expect.True(t, Sense(147, Forward))
	expect.False(t, Sense(147, Reverse))

	for _, test := range []struct {
		flags sam.Flags
		s     Strand
		want  bool
	}{
		{sam.Paired | sam.Read1, Forward, true},
		{sam.Paired | sam.Read1, Reverse, false},
		{sam.Paired | sam.Read1 | sam.Reverse, Reverse, true},
		{sam.Paired | sam.Read2, Forward, false},
		{sam.Paired | sam.Read2, Reverse, true},
		{sam.Paired | sam.Read2 | sam.Reverse, Forward, true},
		// Read1 without Paired behaves like a single-end read.
		{sam.Read1 | sam.Reverse, Reverse, true},
		// Read2 without Paired too.
		{sam.Read2, Forward, true},
	} {
		expect.EQ(t, Sense(test.flags, test.s), test.want, "flags=%v strand=%v", test.flags, test.s)
	}
}

func TestSenseFlipsWithStrand(t *testing.T) {
	for flags := sam.Flags(0); flags < 256; flags++ {
		expect.True(t, Sense(flags, Forward) != Sense(flags, Reverse), "flags=%d", flags)
	}
}
