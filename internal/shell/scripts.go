package shell

// corsProxyScript defines window.__NEXT_CORS_PROXY__, which returns
// same-origin URLs unchanged and maps cross-origin URLs to
// "/_next/proxy?url=<encoded>". No shim module calls it, and the
// dispatcher has no "/_next/proxy" route of its own.
const corsProxyScript = `
<script>
window.__NEXT_CORS_PROXY__ = function(url) {
  try {
    var u = new URL(url, location.href);
    if (u.origin === location.origin) return url;
    return '/_next/proxy?url=' + encodeURIComponent(u.toString());
  } catch (e) {
    return url;
  }
};
</script>
`

// reactRefreshPreamble implements step 6: it must complete before the app
// module graph evaluates, so React Refresh registration calls injected
// into transformed JSX modules (internal/transform's injectReactRefresh)
// have a runtime to call into.
const reactRefreshPreamble = `
<script type="module">
import RefreshRuntime from "https://esm.sh/react-refresh/runtime";
RefreshRuntime.injectIntoGlobalHook(window);
window.$RefreshReg$ = function() {};
window.$RefreshSig$ = function() { return function(type) { return type; }; };
window.__REACT_REFRESH_RUNTIME__ = RefreshRuntime;
</script>
`

// notFoundFallbackHTML is the body content used when no page resolved and
// no not-found convention/route exists either (the built-in 404).
const notFoundFallbackHTML = `<div style="font-family:sans-serif;padding:2rem"><h1>404</h1><p>This page could not be found.</p></div>`

// mountRouterRuntime implements step 9: a client-side router component
// that lazy-loads the page module (and, in app mode, every layout module
// along the route, nested outside-in) and wraps async page components with
// a suspense-like renderer that delegates to convention components on a
// distinguished not-found/error sentinel. On popstate it refetches the
// route params for the new location and re-renders; the page and layout
// modules stay the ones resolved for the initial request and are not
// re-resolved for the new path.
const mountRouterRuntime = `
window.__NEXT_NOT_FOUND__ = window.__NEXT_NOT_FOUND__ || Symbol('not-found');
window.__NEXT_ROUTE_PARAMS__ = {};

window.__NEXT_MOUNT__ = async function(pageURL, layoutURLs, routeInfoURL, appMode, conventions) {
  var root = document.getElementById('__next');
  conventions = conventions || {};

  async function fetchParams(pathname) {
    try {
      var res = await fetch(routeInfoURL.replace(/pathname=[^&]*/, 'pathname=' + encodeURIComponent(pathname)));
      var data = await res.json();
      window.__NEXT_ROUTE_PARAMS__ = data.params || {};
      return data;
    } catch (e) {
      return { params: {}, found: false };
    }
  }

  async function conventionElement(React, url) {
    var mod = await import(url);
    return React.createElement(mod.default);
  }

  // Resolves the page into a renderable element. Promise-returning page
  // components are awaited here; a rejection carrying the not-found
  // sentinel (or any error) delegates to the matching convention
  // component when one exists along the route.
  async function pageElement(React, pageModule) {
    var Component = pageModule.default;
    var result;
    try {
      result = Component(window.__NEXT_ROUTE_PARAMS__ ? { params: window.__NEXT_ROUTE_PARAMS__ } : {});
      if (result && typeof result.then === 'function') {
        result = await result;
      }
    } catch (err) {
      if (err === window.__NEXT_NOT_FOUND__ && conventions.notFound) {
        return conventionElement(React, conventions.notFound);
      }
      if (conventions.error) {
        return conventionElement(React, conventions.error);
      }
      throw err;
    }
    if (result === window.__NEXT_NOT_FOUND__ && conventions.notFound) {
      return conventionElement(React, conventions.notFound);
    }
    return React.isValidElement && React.isValidElement(result) ? result : React.createElement(Component);
  }

  async function renderRoute(pathname) {
    if (!pageURL) {
      root.innerHTML = '';
      return;
    }
    await fetchParams(pathname);
    try {
      var pageModule = await import(pageURL);
      var layoutModules = [];
      for (var i = 0; i < layoutURLs.length; i++) {
        layoutModules.push((await import(layoutURLs[i])).default);
      }

      var React = (await import('react'));
      var ReactDOM = (await import('react-dom'));

      var element = await pageElement(React, pageModule);
      for (var j = layoutModules.length - 1; j >= 0; j--) {
        element = React.createElement(layoutModules[j], null, element);
      }

      if (ReactDOM.createRoot) {
        (root.__reactRoot || (root.__reactRoot = ReactDOM.createRoot(root))).render(element);
      }
    } catch (err) {
      root.innerHTML = '<pre style="color:#b00">' + String(err && err.message || err) + '</pre>';
    }
  }

  window.addEventListener('popstate', function() {
    renderRoute(location.pathname);
  });

  await renderRoute(location.pathname);
};
`
