// Package main is the entry point for the codevectorizer application: a
// service that ingests source repositories, chunks their files, generates
// vector embeddings, and serves semantic code search over the result.
package main

import "codevectorizer/cmd"

func main() {
	cmd.Execute()
}
