/*
Package nhmm builds a position-indexed, constraint-filtered Markov chain over
word sequences of a fixed length and samples new sequences from it.

Training takes the sequences of an unconstrained source model, counts word to
word transitions, copies those counts into one layer per transition step,
lets an Applicator delete the transitions a domain rule forbids, removes every
node that can no longer lie on a complete path (arc consistency), prepends a
START layer and normalises each row into a probability distribution.

A trained Model is read-only. Generate, Probability, SolutionCount and the
introspection methods may be called from many goroutines at once; callers that
want independent random streams pass their own generator with WithRand.
*/
package nhmm
