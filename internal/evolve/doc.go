// Package evolve drives the genetic search over expression trees.
//
// An [Engine] owns a fixed-size population of [Genome] values and runs
// replacement cycles: parallel fitness evaluation, tournament selection,
// subtree crossover and mutation, with a configurable number of elites
// carried over unchanged. The best genome ever seen is tracked across
// generations and returned in the [Result].
//
// Runs are deterministic under a fixed seed: all random choices draw from
// a single seeded source on the breeding goroutine, and fitness
// evaluation, though fanned out across workers, is itself deterministic
// and writes only to disjoint genomes.
package evolve
