package job

import (
	"fsrtos/internal/kernel"
)

// MsgPing is the message type used by Ping and Pong.
const MsgPing kernel.MsgType = 1

// Pong serves rounds requests (forever when rounds <= 0): it answers each
// synchronous message with the payload plus one. Async deliveries are
// counted but not answered.
func Pong(k *kernel.Kernel, rounds int, seen func(from kernel.PID, v uint32)) kernel.Entry {
	return func() {
		for i := 0; rounds <= 0 || i < rounds; i++ {
			from, v := k.Receive(kernel.MsgMask(MsgPing))
			if seen != nil {
				seen(from, v)
			}
			if from != kernel.NoPID {
				k.Reply(from, v+1)
			}
		}
	}
}

// Ping sends rounds requests to the task whose pid target reads at run
// time, and reports every reply.
func Ping(k *kernel.Kernel, target func() kernel.PID, rounds int, reply func(uint32)) kernel.Entry {
	return func() {
		for i := 0; rounds <= 0 || i < rounds; i++ {
			r := k.Send(target(), MsgPing, uint32(i))
			if reply != nil {
				reply(r)
			}
		}
	}
}
