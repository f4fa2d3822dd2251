// Command mesisim runs MESI coherence simulations.
package main

func main() {
	Execute()
}
