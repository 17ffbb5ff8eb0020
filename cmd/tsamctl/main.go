// Command tsamctl lists, inspects and deletes TSAM records from a terminal
// through the same list screens the web console serves.
package main

func main() {
	Execute()
}
