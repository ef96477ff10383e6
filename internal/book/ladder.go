package book

import (
	"github.com/huandu/skiplist"

	"tickpipe/internal/schema"
)

// ladder is one side of a book: price levels kept in best-first order.
type ladder struct {
	side   schema.Side
	list   *skiplist.SkipList
	levels map[schema.Price]*skiplist.Element
}

func newBidLadder() *ladder {
	return &ladder{
		side: schema.SideBid,
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(schema.Price)
			p2, _ := rhs.(schema.Price)

			if p1 < p2 {
				return 1
			} else if p1 > p2 {
				return -1
			}

			return 0
		})),
		levels: make(map[schema.Price]*skiplist.Element),
	}
}

func newAskLadder() *ladder {
	return &ladder{
		side: schema.SideAsk,
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(schema.Price)
			p2, _ := rhs.(schema.Price)

			if p1 > p2 {
				return 1
			} else if p1 < p2 {
				return -1
			}

			return 0
		})),
		levels: make(map[schema.Price]*skiplist.Element),
	}
}

func (l *ladder) size(price schema.Price) schema.Quantity {
	el, ok := l.levels[price]
	if !ok {
		return 0
	}
	return el.Value.(schema.Quantity)
}

// set stores size at price, removing the level when size <= 0.
func (l *ladder) set(price schema.Price, size schema.Quantity) {
	if size <= 0 {
		l.remove(price)
		return
	}
	l.levels[price] = l.list.Set(price, size)
}

func (l *ladder) remove(price schema.Price) {
	el, ok := l.levels[price]
	if !ok {
		return
	}
	l.list.RemoveElement(el)
	delete(l.levels, price)
}

func (l *ladder) best() (schema.Level, bool) {
	el := l.list.Front()
	if el == nil {
		return schema.Level{}, false
	}
	return levelOf(el), true
}

// removeBetterThan drops every level strictly better than price.
func (l *ladder) removeBetterThan(price schema.Price) {
	for el := l.list.Front(); el != nil; el = l.list.Front() {
		p := el.Key().(schema.Price)
		if !l.better(p, price) {
			return
		}
		l.list.RemoveElement(el)
		delete(l.levels, p)
	}
}

// trim keeps at most n levels nearest the best.
func (l *ladder) trim(n int) {
	if n <= 0 {
		return
	}
	for l.list.Len() > n {
		el := l.list.Back()
		delete(l.levels, el.Key().(schema.Price))
		l.list.RemoveElement(el)
	}
}

// depth appends up to n levels to dst, best first. n <= 0 means all.
func (l *ladder) depth(dst []schema.Level, n int) []schema.Level {
	for el := l.list.Front(); el != nil; el = el.Next() {
		if n > 0 && len(dst) >= n {
			break
		}
		dst = append(dst, levelOf(el))
	}
	return dst
}

func (l *ladder) len() int {
	return l.list.Len()
}

func (l *ladder) better(a, b schema.Price) bool {
	if l.side == schema.SideBid {
		return a > b
	}
	return a < b
}

func levelOf(el *skiplist.Element) schema.Level {
	return schema.Level{
		Price: el.Key().(schema.Price),
		Size:  el.Value.(schema.Quantity),
	}
}
