// Command sfc classifies files in a source directory and moves them into
// categorized folders, driven by a user-extensible knowledge base. Every run
// records an undo log so the most recent classification can be reverted.
package main
