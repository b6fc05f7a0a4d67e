// netsim runs a simulated unreliable network between virtual peer devices,
// with an HTTP control plane for adjusting the simulation while it runs.
package main

func main() {
	Execute()
}
