package record

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/duocap/duocap/internal/capture"
)

// fakeProvider is a controllable capture provider. On Start it writes a
// fixed payload to the target path, simulating an encoder producing a file.
type fakeProvider struct {
	mu sync.Mutex

	inputErr          error
	inputUnavailable  bool
	outputErr         error
	outputUnavailable bool
	stopErr           error
	startDelay        time.Duration

	inputPayload  int
	outputPayload int

	handles     []*fakeHandle
	inputStarts int
	outputStart int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		inputPayload:  1024,
		outputPayload: 2048,
	}
}

func (p *fakeProvider) Start(ctx context.Context, kind capture.Kind, targetPath string) (capture.Handle, error) {
	p.mu.Lock()
	delay := p.startDelay
	p.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	payload := p.inputPayload
	if kind == capture.KindInput {
		p.inputStarts++
		if p.inputErr != nil {
			return nil, p.inputErr
		}
		if p.inputUnavailable {
			return nil, nil
		}
	} else {
		p.outputStart++
		if p.outputErr != nil {
			return nil, p.outputErr
		}
		if p.outputUnavailable {
			return nil, nil
		}
		payload = p.outputPayload
	}

	if err := os.WriteFile(targetPath, bytes.Repeat([]byte{0x42}, payload), 0644); err != nil {
		return nil, err
	}

	h := &fakeHandle{path: targetPath, stopErr: p.stopErr}
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakeProvider) openHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	open := 0
	for _, h := range p.handles {
		if h.stops() == 0 {
			open++
		}
	}
	return open
}

type fakeHandle struct {
	path    string
	stopErr error

	mu      sync.Mutex
	stopped int
}

func (h *fakeHandle) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped++
	return h.stopErr
}

func (h *fakeHandle) stops() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
