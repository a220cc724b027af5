package hmr

// ClientScript is the HMR client injected into the page by the HTML shell
// synthesizer. It connects to the websocket Bridge, listens for
// postMessage events on the window tagged with the channel id (so a
// sandboxed iframe forwarding messages from a parent frame is also heard),
// and applies CSS hot-swap, JS re-import + refresh, or a full reload.
//
// JS updates are batched in a short micro-delay window.
const ClientScript = `
<script>
(function() {
  'use strict';
  var CHANNEL = '__vango_hmr__';
  var pendingJS = [];
  var batchTimer = null;

  function connect() {
    var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(proto + '//' + location.host + '/_next/hmr');
    ws.onmessage = function (e) {
      try {
        handle(JSON.parse(e.data));
      } catch (err) {
        /* ignore malformed frames */
      }
    };
    ws.onclose = function () {
      setTimeout(connect, 1000);
    };
  }

  window.addEventListener('message', function (e) {
    if (!e.data || e.data.channel !== CHANNEL) return;
    handle(e.data.event);
  });

  function handle(event) {
    if (!event || !event.type) return;
    if (event.type === 'full-reload') {
      location.reload();
      return;
    }
    if (event.type === 'update') {
      if (/\.css$/.test(event.path)) {
        reloadCSS(event.path);
      } else {
        queueJSUpdate(event.path);
      }
    }
  }

  function reloadCSS(path) {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var link = links[i];
      var url = new URL(link.href);
      url.searchParams.set('_hmr', Date.now());
      link.href = url.toString();
    }
  }

  function queueJSUpdate(path) {
    pendingJS.push(path);
    if (batchTimer) return;
    batchTimer = setTimeout(flushJSUpdates, 20);
  }

  function flushJSUpdates() {
    var paths = pendingJS;
    pendingJS = [];
    batchTimer = null;
    paths.forEach(function (path) {
      import(path + '?t=' + Date.now()).then(function () {
        if (window.__REACT_REFRESH_RUNTIME__) window.__REACT_REFRESH_RUNTIME__.performReactRefresh();
      }).catch(function () {
        location.reload();
      });
    });
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', connect);
  } else {
    connect();
  }
})();
</script>
`
