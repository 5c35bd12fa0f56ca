/*
Package templating renders text templates whose content comes from a
constrained sentence model.

Templates are loaded from a directory: files ending in ".tmpl" are full
templates that can be rendered by name, files ending in ".part" hold shared
{{define}} blocks. Every execution is bound to one model, tokenizer and random
source, so a seeded render is reproducible. The set can be reloaded from disk
with Refresh while renders are in flight.

Besides the usual arithmetic and list helpers the function map offers:

	sentence          one generated sentence as text
	sentences n       n generated sentences
	words             one generated sentence as a list of words
	probability text  the model probability of text
	solutionCount     the number of distinct sentences, as a decimal string
	removed pos       a word constraints removed at pos, or ""
	length            the sentence length of the model
*/
package templating
