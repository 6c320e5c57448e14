package event

import (
	"fmt"
	"testing"
)

func TestBatch_AppendAndLine(t *testing.T) {
	b := AcquireBatch(3)
	defer ReleaseBatch(b)

	lines := []string{"11=A|55=X", "", `58=a\|b`}
	for _, l := range lines {
		if !b.Append([]byte(l)) {
			t.Fatalf("Append(%q) refused", l)
		}
	}
	if b.Append([]byte("extra")) {
		t.Error("Append past the limit should be refused")
	}
	if !b.Full() || b.Len() != 3 {
		t.Errorf("Full=%v Len=%d", b.Full(), b.Len())
	}
	for i, want := range lines {
		if got := string(b.Line(i)); got != want {
			t.Errorf("Line(%d) = %q, want %q", i, got, want)
		}
	}
	if b.Bytes() != len("11=A|55=X")+len(`58=a\|b`) {
		t.Errorf("Bytes() = %d", b.Bytes())
	}
}

func TestBatch_LineIsCapped(t *testing.T) {
	b := AcquireBatch(2)
	defer ReleaseBatch(b)

	b.Append([]byte("AAAA"))
	b.Append([]byte("BBBB"))
	first := b.Line(0)
	_ = append(first, 'X')
	if string(b.Line(1)) != "BBBB" {
		t.Errorf("appending to line 0 clobbered line 1: %q", b.Line(1))
	}
}

func TestBatch_CopiesInput(t *testing.T) {
	b := AcquireBatch(1)
	defer ReleaseBatch(b)

	src := []byte("55=AAPL")
	b.Append(src)
	src[3] = 'Z'
	if string(b.Line(0)) != "55=AAPL" {
		t.Errorf("batch aliases caller buffer: %q", b.Line(0))
	}
}

func TestAcquireBatch_IsEmptyAfterReuse(t *testing.T) {
	for i := 0; i < 10; i++ {
		b := AcquireBatch(0)
		if b.Len() != 0 || b.Bytes() != 0 {
			t.Fatalf("acquired batch not empty: len=%d bytes=%d", b.Len(), b.Bytes())
		}
		for j := 0; j < DefaultBatchLines; j++ {
			if !b.Append([]byte(fmt.Sprintf("line-%d", j))) {
				t.Fatalf("default limit refused line %d", j)
			}
		}
		ReleaseBatch(b)
	}
}

func TestReleaseBatch_Nil(t *testing.T) {
	ReleaseBatch(nil)
}

func BenchmarkBatch_FillAndRelease(b *testing.B) {
	Warmup(4)
	line := []byte("8=FIX.4.2|35=D|11=ORD001|55=AAPL|54=1|38=100|52=20240115-09:30:00.123456|10=128|")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch := AcquireBatch(0)
		for batch.Append(line) {
		}
		ReleaseBatch(batch)
	}
}
