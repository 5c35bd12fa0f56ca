/*
Package markov is the SQLite-backed corpus store that constrained models are
trained from.

A Store keeps any number of named models in one database. Training a model
tokenizes text, cuts it into sentences at end-of-chain tokens and records both
the order-N transition counts between tokens and every sentence as an ordered
sequence of token IDs. Corpus loads the sentences of one length back as a
Corpus, which satisfies the Source interface of package nhmm.
*/
package markov
