// Package alarmcore implements the evaluation core of an Integrated Alarm
// System: a distributed data-flow engine that ingests monitor-point samples,
// propagates them through a directed acyclic graph of Computing Elements,
// and publishes the resulting alarms and synthetic values on a message bus.
//
// The core building blocks, leaves first, are:
//
//   - identifier: hierarchical, immutable names for every entity in the tree.
//   - value: the immutable typed payload that flows between Computing Elements.
//   - codec: the JSON wire format for Value.
//   - tf: the Transfer Function abstraction and the reference implementations.
//   - ce: the Computing Element, which hosts one Transfer Function.
//   - topology: the acyclic graph of Computing Elements inside one Distributed Unit.
//   - du: the Distributed Unit, which owns a Topology and governs propagation,
//     throttling, auto-refresh and validity.
//   - supervisor: the process container that hosts several Distributed Units.
//   - bus and config: the external collaborator contracts (message bus,
//     configuration store) plus NATS/YAML adapters for a runnable binary.
package alarmcore
