package devserver

import (
	"regexp"
	"strings"
)

var bodyClose = regexp.MustCompile(`(?i)</body>`)

const liveReloadScript = `<script>(function(){` +
	`var es=new EventSource('` + LiveReloadPath + `');` +
	`es.onmessage=function(e){if(e.data==='reload'){window.location.reload();}};` +
	`})();</script>`

const consoleScript = `<script>(function(){` +
	`['log','info','warn','error','debug'].forEach(function(level){` +
	`var orig=console[level];` +
	`console[level]=function(){` +
	`var args=Array.prototype.slice.call(arguments).map(function(a){` +
	`try{return typeof a==='string'?a:JSON.stringify(a);}catch(e){return String(a);}});` +
	`try{var x=new XMLHttpRequest();x.open('POST','` + ConsolePath + `',true);` +
	`x.setRequestHeader('Content-Type','application/json');` +
	`x.send(JSON.stringify({level:level,args:args}));}catch(e){}` +
	`if(orig){orig.apply(console,arguments);}};});` +
	`})();</script>`

// Inject adds the live reload and console scripts before </body>, or at the
// end when the page has none.
func Inject(page string, liveReload, consoleLogs bool) string {
	var scripts strings.Builder
	if consoleLogs {
		scripts.WriteString(consoleScript)
	}
	if liveReload {
		scripts.WriteString(liveReloadScript)
	}
	if scripts.Len() == 0 {
		return page
	}
	if loc := bodyClose.FindStringIndex(page); loc != nil {
		return page[:loc[0]] + scripts.String() + page[loc[0]:]
	}
	return page + scripts.String()
}
