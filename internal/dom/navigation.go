package dom

import "slices"

// Navigate records a single-page-app route change and notifies navigation
// listeners on the loop.
func (d *Document) Navigate(location string) {
	d.location = location
	for _, fn := range slices.Clone(d.navListeners) {
		d.sched.Post(func() { fn(location) })
	}
}

// OnNavigate registers fn for route changes and returns a remover.
func (d *Document) OnNavigate(fn func(location string)) func() {
	d.navSeq++
	id := d.navSeq
	d.navListeners = append(d.navListeners, fn)
	d.navIDs = append(d.navIDs, id)
	return func() {
		for i, cur := range d.navIDs {
			if cur == id {
				d.navListeners = append(d.navListeners[:i], d.navListeners[i+1:]...)
				d.navIDs = append(d.navIDs[:i], d.navIDs[i+1:]...)
				return
			}
		}
	}
}
