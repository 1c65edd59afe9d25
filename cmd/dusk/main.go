// Command dusk renders an HTML document in a native window or to a
// PNG screenshot.
package main

func main() {
	Execute()
}
