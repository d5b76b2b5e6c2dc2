package eventlog

// AppendNotify returns a channel closed by the next successful append.
// Take it before reading to avoid missing an append in between.
func (l *Log) AppendNotify() <-chan struct{} {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	return l.notifyCh
}

func (l *Log) notify() {
	l.notifyMu.Lock()
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	l.notifyMu.Unlock()
}
