// SPDX-License-Identifier: MPL-2.0

// Package remote is the public API of remotectl.
//
// A host process calls Launch to expose its state and a pause controller on
// the network, then calls Host.Checkpoint between iterations of its work loop.
// Any other process calls Connect to get a Proxy, which reads and writes the
// host's state and pauses or resumes the host loop:
//
//	p, err := remote.Connect(ctx, "trainer.local", 12345)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	lr, err := p.Float(ctx, "learning_rate")
//	...
//	err = p.Set(ctx, "learning_rate", store.Number(lr/2))
package remote
