// Package classifier binds a definition to the shared oracle client and
// classifies every chunk of a conversation concurrently.
package classifier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/definitions"
	"github.com/JaimeStill/emoclassify/internal/oracle"
)

// Oracle classifies a single chunk. *oracle.Client satisfies it.
type Oracle interface {
	Classify(ctx context.Context, def definitions.Definition, chunk chunking.Chunk) (oracle.Verdict, error)
}

// Classifier pairs a definition with the oracle that judges its chunks.
type Classifier struct {
	def      definitions.Definition
	oracle   Oracle
	nContext int
}

// New creates a Classifier. nContext is the number of preceding messages
// attached to each anchor.
func New(def definitions.Definition, o Oracle, nContext int) *Classifier {
	return &Classifier{def: def, oracle: o, nContext: nContext}
}

// Name returns the definition name.
func (c *Classifier) Name() string {
	return c.def.Name()
}

// Definition returns the underlying definition.
func (c *Classifier) Definition() definitions.Definition {
	return c.def
}

// ClassifyConversation chunks conv with the definition's policy and classifies
// every chunk concurrently. The result is keyed by chunk id. A conversation
// with no chunks yields an empty map. The first chunk failure is returned
// after all siblings finish; siblings are not cancelled.
func (c *Classifier) ClassifyConversation(ctx context.Context, conv conversation.Conversation) (map[int]oracle.Verdict, error) {
	chunks, err := c.def.Policy().Chunk(conv, c.nContext)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", c.def.Name(), err)
	}

	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(map[int]oracle.Verdict, len(chunks))
	)

	for id, chunk := range chunks {
		g.Go(func() error {
			v, err := c.oracle.Classify(ctx, c.def, chunk)
			if err != nil {
				return fmt.Errorf("classifier %s: chunk %d: %w", c.def.Name(), id, err)
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
