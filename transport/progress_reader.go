package transport

import "io"

// progressReader reports the percentage of total consumed, once per whole
// percent.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    func(float64)
}

func newProgressReader(r io.Reader, total int64, fn func(float64)) io.Reader {
	if fn == nil || total <= 0 {
		return r
	}
	return &progressReader{r: r, total: total, last: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := int(100 * p.read / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct > p.last {
		p.last = pct
		p.fn(float64(pct))
	}
	return n, err
}
