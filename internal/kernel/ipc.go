package kernel

import (
	"go.uber.org/zap"
)

// Send delivers v to the task to and blocks until that task replies. If the
// target is already receiving a matching type, the hand-off happens now;
// otherwise the caller waits in SNDBLOCK for the dispatcher to match it.
func (k *Kernel) Send(to PID, t MsgType, v uint32) uint32 {
	if !k.active {
		return 0
	}
	cp := k.cp
	k.irq.disable()
	q, ok := k.table.lookup(to)
	if !ok {
		k.trap(FaultPIDNotFound, to)
	}
	if accepts(q, t) {
		k.rendezvous(cp, q, v)
	} else {
		cp.peer = to
		cp.msgType = t
		cp.msg = v
		k.setState(cp, StateSendBlock)
		cp.request = RequestWaiting
	}
	k.enter()
	return cp.msg
}

// Receive blocks until a message whose type is in mask arrives, and returns
// the sender and payload. A sender of NoPID means an async delivery that
// expects no reply.
func (k *Kernel) Receive(mask MsgMask) (PID, uint32) {
	if !k.active {
		return NoPID, 0
	}
	cp := k.cp
	k.irq.disable()
	cp.mask = mask
	k.setState(cp, StateRecvBlock)
	cp.request = RequestWaiting
	k.enter()
	// a synchronous sender was parked in RPYBLOCK by the hand-off
	return cp.peer, cp.msg
}

// Reply unblocks a sender waiting in RPYBLOCK with v as its result. Replying
// to a task that is not waiting for a reply changes nothing.
func (k *Kernel) Reply(to PID, v uint32) {
	if !k.active {
		return
	}
	k.irq.disable()
	s, ok := k.table.lookup(to)
	if !ok {
		k.trap(FaultPIDNotFound, to)
	}
	if s.state == StateReplyBlock {
		s.msg = v
		k.setState(s, StateReady)
		s.request = RequestNone
	}
	k.enter()
}

// AsyncSend delivers v only if the target is receiving a matching type right
// now. Otherwise the message is dropped. The caller never blocks.
func (k *Kernel) AsyncSend(to PID, t MsgType, v uint32) {
	if !k.active {
		return
	}
	k.irq.disable()
	q, ok := k.table.lookup(to)
	if !ok {
		k.trap(FaultPIDNotFound, to)
	}
	if accepts(q, t) {
		q.msg = v
		q.peer = NoPID
		k.setState(q, StateReady)
		q.request = RequestNone
	} else {
		k.log.Debug("async message dropped",
			zap.Uint16("from", uint16(k.cp.pid)),
			zap.Uint16("to", uint16(to)),
			zap.Uint8("type", uint8(t)),
			zap.Stringer("target_state", q.state),
		)
	}
	k.enter()
}

func accepts(q *Descriptor, t MsgType) bool {
	return q.state == StateRecvBlock && MsgMask(t)&q.mask != 0
}

// rendezvous hands v to a waiting receiver and parks the sender for the reply.
func (k *Kernel) rendezvous(sender, receiver *Descriptor, v uint32) {
	receiver.msg = v
	receiver.peer = sender.pid
	k.setState(receiver, StateReady)
	receiver.request = RequestNone
	k.setState(sender, StateReplyBlock)
	sender.request = RequestWaiting
}
