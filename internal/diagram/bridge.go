package diagram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default export timeouts.
const (
	DefaultXMLExportTimeout = 5 * time.Second
	DefaultPNGExportTimeout = 8 * time.Second
)

// ErrEditorTimeout is returned when the editor does not answer an export in time and there
// is no saved diagram to fall back to.
var ErrEditorTimeout = errors.New("editor did not answer the export request")

// ErrBridgeClosed is returned by calls made after Close.
var ErrBridgeClosed = errors.New("editor bridge closed")

// Incoming is a raw message received from the editor frame.
type Incoming struct {
	Origin string
	Data   []byte
}

// Transport carries messages to and from an embedded editor.
type Transport interface {
	Send(ctx context.Context, msg []byte) error
	// Receive returns the stream of incoming messages. It is closed when the editor goes away.
	Receive() <-chan Incoming
}

// Bridge is a typed message bus over a Transport. It keeps track of the latest diagram,
// reloads it into the editor on init, and turns asynchronous export events into blocking
// calls with timeouts.
type Bridge struct {
	transport  Transport
	logger     *zap.Logger
	xmlTimeout time.Duration
	pngTimeout time.Duration
	onEvent    func(Event)

	mu         sync.Mutex
	current    string
	ready      bool
	xmlWaiters []chan string
	pngWaiters []chan string

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithExportTimeouts overrides the XML and PNG export timeouts.
func WithExportTimeouts(xml, png time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.xmlTimeout = xml
		b.pngTimeout = png
	}
}

// WithInitialXML sets the diagram loaded into the editor when it reports init.
func WithInitialXML(xml string) BridgeOption {
	return func(b *Bridge) {
		b.current = xml
	}
}

// WithEventHandler registers a callback invoked for every accepted event, after the bridge
// has processed it. The callback runs on the bridge goroutine.
func WithEventHandler(fn func(Event)) BridgeOption {
	return func(b *Bridge) {
		b.onEvent = fn
	}
}

// NewBridge starts a bridge over transport. Call Close to stop it.
func NewBridge(transport Transport, logger *zap.Logger, opts ...BridgeOption) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		transport:  transport,
		logger:     logger,
		xmlTimeout: DefaultXMLExportTimeout,
		pngTimeout: DefaultPNGExportTimeout,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.wg.Add(1)
	go b.run()
	return b
}

// Close stops the bridge goroutine and waits for it to exit.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
	return nil
}

// Ready reports whether the editor has sent init.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Current returns the latest diagram XML known to the bridge.
func (b *Bridge) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Load records xml as the current diagram and sends it to the editor.
func (b *Bridge) Load(ctx context.Context, xml string) error {
	if b.closed() {
		return ErrBridgeClosed
	}
	b.mu.Lock()
	b.current = xml
	b.mu.Unlock()

	if err := b.transport.Send(ctx, LoadMessage(xml)); err != nil {
		return fmt.Errorf("failed to send load: %w", err)
	}
	return nil
}

// ExportXML asks the editor for the diagram XML. If the editor does not answer within the
// XML timeout, fallback is returned instead; a blank fallback yields ErrEditorTimeout.
func (b *Bridge) ExportXML(ctx context.Context, fallback string) (string, error) {
	xml, err := b.await(ctx, &b.xmlWaiters, b.xmlTimeout, FormatXMLSVG)
	if errors.Is(err, ErrEditorTimeout) {
		if strings.TrimSpace(fallback) != "" {
			b.logger.Info("editor export timed out, using saved diagram")
			return fallback, nil
		}
	}
	return xml, err
}

// ExportPNG asks the editor for a PNG export and returns it as a data URL. The XML is
// requested alongside so the bridge's current diagram matches the image.
func (b *Bridge) ExportPNG(ctx context.Context) (string, error) {
	return b.await(ctx, &b.pngWaiters, b.pngTimeout, FormatPNG, FormatXMLSVG)
}

// await registers a waiter, sends one export request per format and blocks until the first
// format's answer, the timeout, ctx cancellation or Close.
func (b *Bridge) await(ctx context.Context, waiters *[]chan string, timeout time.Duration, formats ...Format) (string, error) {
	if b.closed() {
		return "", ErrBridgeClosed
	}

	ch := make(chan string, 1)
	b.mu.Lock()
	*waiters = append(*waiters, ch)
	b.mu.Unlock()
	defer b.removeWaiter(waiters, ch)

	for _, format := range formats {
		if err := b.transport.Send(ctx, ExportMessage(format)); err != nil {
			return "", fmt.Errorf("failed to request %s export: %w", format, err)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		return result, nil
	case <-timer.C:
		return "", ErrEditorTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.done:
		return "", ErrBridgeClosed
	}
}

func (b *Bridge) removeWaiter(waiters *[]chan string, ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range *waiters {
		if w == ch {
			*waiters = append((*waiters)[:i], (*waiters)[i+1:]...)
			return
		}
	}
}

func (b *Bridge) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *Bridge) run() {
	defer b.wg.Done()

	incoming := b.transport.Receive()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			event, err := ParseEvent(msg.Origin, msg.Data)
			if err != nil {
				b.logger.Debug("ignoring editor message", zap.Error(err))
				continue
			}
			b.handle(event)
			if b.onEvent != nil {
				b.onEvent(event)
			}
		}
	}
}

func (b *Bridge) handle(event Event) {
	switch event.Kind {
	case EventInit:
		b.mu.Lock()
		b.ready = true
		xml := b.current
		b.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), b.xmlTimeout)
		defer cancel()
		if err := b.transport.Send(ctx, LoadMessage(xml)); err != nil {
			b.logger.Warn("failed to load diagram into editor", zap.Error(err))
		}

	case EventSave:
		b.mu.Lock()
		b.current = event.XML
		b.mu.Unlock()

	case EventExport:
		b.mu.Lock()
		var waiters []chan string
		var value string
		if event.XML != "" {
			b.current = event.XML
			waiters, b.xmlWaiters = b.xmlWaiters, nil
			value = event.XML
		} else {
			waiters, b.pngWaiters = b.pngWaiters, nil
			value = event.PNG
		}
		b.mu.Unlock()

		for _, ch := range waiters {
			ch <- value
		}
	}
}
