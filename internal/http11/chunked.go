package http11

import "bytes"

// consumeChunkedBody advances the chunked-transfer-encoding state machine
// as far as the buffered bytes allow. done=true means either a terminal
// error was recorded or the whole body (including the trailing zero-chunk)
// finished; done=false means more bytes are needed. more is always false:
// every buffered chunk is consumed in an internal loop.
func (p *Parser) consumeChunkedBody() (done bool, more bool) {
	for {
		if p.chunkFinal {
			if len(p.buf) < 2 {
				return false, false
			}
			if p.buf[0] != '\r' || p.buf[1] != '\n' {
				p.fail(StatusBadRequest, ErrChunkSizeMismatch)
				return true, false
			}
			p.buf = p.buf[2:]
			p.req.BodyComplete = true
			p.st = stageDone
			return true, false
		}

		if p.chunkRemaining > 0 || p.chunkAwaitingEnd {
			if p.chunkRemaining > 0 {
				avail := int64(len(p.buf))
				if avail == 0 {
					return false, false
				}
				take := p.chunkRemaining
				if avail < take {
					take = avail
				}
				p.req.Body = append(p.req.Body, p.buf[:take]...)
				p.buf = p.buf[take:]
				p.chunkRemaining -= take
				if int64(len(p.req.Body)) > p.maxBodySize {
					p.fail(StatusPayloadTooLarge, ErrBodyTooLarge)
					return true, false
				}
				if p.chunkRemaining > 0 {
					return false, false
				}
				p.chunkAwaitingEnd = true
			}
			if len(p.buf) < 2 {
				return false, false
			}
			if p.buf[0] != '\r' || p.buf[1] != '\n' {
				// The data observed before the CRLF didn't match the
				// declared chunk size.
				p.fail(StatusBadRequest, ErrChunkSizeMismatch)
				return true, false
			}
			p.buf = p.buf[2:]
			p.chunkAwaitingEnd = false
			continue
		}

		// Read the next chunk-size line.
		idx := bytes.Index(p.buf, []byte("\r\n"))
		if idx < 0 {
			if len(p.buf) > maxChunkLine {
				p.fail(StatusBadRequest, ErrBadChunkSize)
				return true, false
			}
			return false, false
		}
		sizeLine := p.buf[:idx]
		if len(sizeLine) == 0 || len(sizeLine) > maxChunkLine {
			p.fail(StatusBadRequest, ErrBadChunkSize)
			return true, false
		}
		size, ok := parseHexSize(sizeLine)
		if !ok {
			p.fail(StatusBadRequest, ErrBadChunkSize)
			return true, false
		}
		p.buf = p.buf[idx+2:]

		if size == 0 {
			// Terminating chunk: exactly one more CRLF, no trailers.
			p.chunkFinal = true
			continue
		}

		p.chunkRemaining = size
	}
}

func parseHexSize(line []byte) (int64, bool) {
	var v int64
	if len(line) == 0 {
		return 0, false
	}
	for _, b := range line {
		var d int64
		switch {
		case b >= '0' && b <= '9':
			d = int64(b - '0')
		case b >= 'a' && b <= 'f':
			d = int64(b-'a') + 10
		case b >= 'A' && b <= 'F':
			d = int64(b-'A') + 10
		default:
			return 0, false
		}
		v = v*16 + d
		if v < 0 {
			return 0, false // overflow
		}
	}
	return v, true
}
