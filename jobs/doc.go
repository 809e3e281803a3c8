// Package jobs is the consumer side of long-running generation services:
// submit a payload, poll the job until it reaches a terminal status, then
// download the produced asset.
//
// The contract is small. Submit returns the job id, Poll
// returns one status snapshot, Await drives Poll on a fixed interval (with
// an optional poll budget) and Download fetches the result URL to a local
// path. HTTPClient implements the contract over plain JSON endpoints:
// POST <base> to submit, GET <base>/<id> to poll.
package jobs
