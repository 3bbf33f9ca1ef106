package node

import (
	"context"

	"github.com/sectionmesh/node/internal/accumulator"
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
	"github.com/sectionmesh/node/internal/transport"
)

// sendUserMessageRequest carries a SendUserMessage call across into the
// event loop goroutine, so every touch of n.state/n.acc still happens
// inside Run's single exclusion region (spec.md §5) no matter which
// goroutine called SendUserMessage.
type sendUserMessageRequest struct {
	dst     authority.DstLocation
	dstKey  crypto.SectionKey
	content []byte
	result  chan error
}

// SendUserMessage implements spec.md §2's outgoing data flow for Component
// F: this elder signs content with its own BLS key share, folds that share
// into its own accumulator exactly as a share arriving over transport
// would, and fans the same share out to every other elder of the section
// so they independently accumulate toward the same combined signature.
// Only an elder holds a secret key share; callers that are not currently
// an elder get ErrNotAnElder. Safe to call from any goroutine; the actual
// work runs on the event loop goroutine.
func (n *Node) SendUserMessage(ctx context.Context, dst authority.DstLocation, dstKey crypto.SectionKey, content []byte) error {
	req := sendUserMessageRequest{dst: dst, dstKey: dstKey, content: content, result: make(chan error, 1)}

	select {
	case n.sendRequests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doSendUserMessage runs req on the event loop goroutine and reports the
// outcome back to the blocked SendUserMessage caller.
func (n *Node) doSendUserMessage(ctx context.Context, req sendUserMessageRequest) {
	req.result <- n.sendUserMessage(ctx, req.dst, req.dstKey, req.content)
}

func (n *Node) sendUserMessage(ctx context.Context, dst authority.DstLocation, dstKey crypto.SectionKey, content []byte) error {
	secretShare := n.state.SecretKeyShare()
	if secretShare == nil {
		return ErrNotAnElder
	}

	plain := accumulator.PlainMessage{
		Src:     n.state.OurPrefix(),
		Dst:     dst,
		DstKey:  dstKey,
		Variant: message.NewUserMessage(content),
	}
	signable, err := plain.SignableBytes()
	if err != nil {
		return err
	}
	sig, err := secretShare.Sign(signable)
	if err != nil {
		return err
	}

	proof := n.state.History()
	n.fanOutShare(ctx, accumulator.ShareMessage{
		Content:    plain,
		ProofChain: proof,
		Index:      sig.Index(),
		Signature:  sig,
	})

	return n.AccumulateShare(ctx, accumulator.AccumulatingMessage{
		Content:    plain,
		ProofChain: proof,
		ProofShare: accumulator.ProofShare{
			PublicKeySet: n.state.PublicKeySet(),
			Index:        sig.Index(),
			Signature:    sig,
		},
	})
}

// fanOutShare publishes wire to every other current elder's node topic, so
// each can fold the same partial signature into its own accumulator.
// Publish failures are per-elder and non-fatal: a threshold of shares can
// still combine without every elder being reachable (spec.md §4.F only
// requires threshold+1, never all n).
func (n *Node) fanOutShare(ctx context.Context, wire accumulator.ShareMessage) {
	data, err := accumulator.MarshalShare(wire)
	if err != nil {
		return
	}

	self := n.identity.Name()
	for _, e := range n.state.Elders().Elders {
		if e.Name == self {
			continue
		}
		n.transport.Publish(ctx, transport.NodeTopic(e.Name), data)
	}
}
